// Package reader defines the data-reader contract the worker pipeline
// consumes and a reference libsvm-format implementation. Other sparse-file
// formats (criteo, etc.) are not implemented here; a production reader is a
// drop-in replacement for Interface.
package reader

import "github.com/asyncps/psengine/minibatch"

// Interface is a minibatch iterator over one partition of one data file.
type Interface interface {
	// BeforeFirst rewinds the iterator to before the first minibatch.
	BeforeFirst() error
	// Next advances to the next minibatch, returning false when exhausted
	// or on error (call Err to distinguish the two).
	Next() bool
	// Value returns the current minibatch. Valid only after a Next that
	// returned true.
	Value() minibatch.Minibatch
	// Err returns the first error encountered by Next, if any.
	Err() error
	// Close releases any resources (open file descriptors, etc).
	Close() error
}
