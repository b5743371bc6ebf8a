/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package throttledio provides io.ReadCloser and io.WriteCloser decorators that limit
// the average throughput (bytes per second) of the underlying stream.
//
// Throughput is measured as a cumulative average since the decorator creation
// (elapsed time is counted in whole seconds). Before each read or write, the calling goroutine
// sleeps by SleepQuantum until the average throughput falls under the rate limit.
// There is no burst allowance and no sharing of a limit between streams.
// It makes the package suitable for simulating slow network or disk in tests and tools,
// but not for precise traffic shaping.
//
// Writer splits large writes into chunks of the rate limit size and throttles before each of them.
//
// Waiting may be interrupted via the context passed in ReaderOpts/WriterOpts.
// In this case, the read or write call fails with an error that matches ErrInterrupted.
package throttledio
