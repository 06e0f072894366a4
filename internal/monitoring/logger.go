// Package monitoring carries the package-level diagnostic logger shared by
// the capture pipeline.
package monitoring

import "log"

// Logf is the diagnostic logger used by library packages. It defaults to
// log.Printf; tests and embedders can redirect or mute it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
