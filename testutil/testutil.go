/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for writing tests of throttled streams and their surroundings.
package testutil

type tHelper interface {
	Helper()
}
