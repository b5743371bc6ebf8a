/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// fakeClock moves its time forward on each After call instead of sleeping.
type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	afterCalls int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterCalls++
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) AfterCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afterCalls
}

type mockReadCloser struct {
	*bytes.Reader
	readCalls  int
	closeCalls int
}

func newMockReadCloser(data []byte) *mockReadCloser {
	return &mockReadCloser{Reader: bytes.NewReader(data)}
}

func (m *mockReadCloser) Read(p []byte) (int, error) {
	m.readCalls++
	return m.Reader.Read(p)
}

func (m *mockReadCloser) Close() error {
	m.closeCalls++
	return nil
}

// plainReadCloser hides io.ByteReader of the underlying reader.
type plainReadCloser struct {
	r *mockReadCloser
}

func (p plainReadCloser) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p plainReadCloser) Close() error               { return p.r.Close() }

type failingReadCloser struct {
	err error
}

func (f failingReadCloser) Read([]byte) (int, error) { return 0, f.err }
func (f failingReadCloser) Close() error             { return nil }

type mockWriteCloser struct {
	bytes.Buffer
	writeSizes []int
	closeCalls int
	closeErr   error

	// shortBy makes each write report fewer bytes than given.
	shortBy int
	// failAfter makes writes fail once that many bytes were written (if positive).
	failAfter int
}

var errMockWrite = errors.New("mock write failed")

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	m.writeSizes = append(m.writeSizes, len(p))
	if m.failAfter > 0 && m.Len()+len(p) > m.failAfter {
		return 0, errMockWrite
	}
	n := len(p) - m.shortBy
	if n < 0 {
		n = 0
	}
	_, _ = m.Buffer.Write(p[:n])
	return n, nil
}

func (m *mockWriteCloser) Close() error {
	m.closeCalls++
	if m.closeCalls > 1 && m.closeErr != nil {
		return m.closeErr
	}
	return nil
}

func makeTestData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
