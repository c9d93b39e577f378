// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage defines the ordered key-value storage used
// by the rewrite journal, along with an in-memory implementation.
package storage

import "iter"

// A DB is a key-value database.
//
// Keys are ordered by [bytes.Compare]; callers typically build them
// with [rsc.io/ordered] so that related entries sort together.
//
// Implementations panic on I/O failures rather than returning errors:
// there is nothing useful a caller can do about a broken database
// in the middle of a run.
type DB interface {
	// Get returns the value associated with the key.
	Get(key []byte) (val []byte, ok bool)

	// Set sets the value associated with key to val.
	Set(key, val []byte)

	// Delete deletes any entry with the given key.
	Delete(key []byte)

	// DeleteRange deletes all entries with start ≤ key ≤ end.
	DeleteRange(start, end []byte)

	// Scan returns an iterator over all key-value pairs
	// in the range start ≤ key ≤ end.
	// The value is returned as a function so that
	// callers that only need keys do not pay for loading values.
	Scan(start, end []byte) iter.Seq2[[]byte, func() []byte]

	// Batch returns a new batch.
	Batch() Batch

	// Flush flushes everything written so far to persistent storage.
	Flush()

	// Close closes the database.
	Close()
}

// A Batch accumulates changes to be applied to a DB all at once.
type Batch interface {
	// Set sets the value associated with key to val.
	Set(key, val []byte)

	// Delete deletes any entry with the given key.
	Delete(key []byte)

	// Apply applies the accumulated changes and empties the batch.
	Apply()
}
