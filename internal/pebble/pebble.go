// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pebble implements a storage.DB using Pebble,
// a production-quality key-value database from CockroachDB.
package pebble

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"golang.org/x/daxfilter/internal/storage"
)

// Create creates a new database in the directory dir.
// It is an error if the database already exists.
func Create(lg *slog.Logger, dir string) (storage.DB, error) {
	return open(lg, dir, &pebble.Options{ErrorIfExists: true})
}

// Open opens an existing database in the directory dir.
// It is an error if the database does not already exist.
func Open(lg *slog.Logger, dir string) (storage.DB, error) {
	return open(lg, dir, &pebble.Options{ErrorIfNotExists: true})
}

// OpenOrCreate opens the database in the directory dir,
// creating it if needed.
func OpenOrCreate(lg *slog.Logger, dir string) (storage.DB, error) {
	return open(lg, dir, &pebble.Options{})
}

func open(lg *slog.Logger, dir string, opts *pebble.Options) (storage.DB, error) {
	if lg == nil {
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts.Logger = pebbleLogger{lg}
	p, err := pebble.Open(dir, opts)
	if err != nil {
		lg.Error("pebble open error", "dir", dir, "err", err)
		return nil, err
	}
	return &db{p: p, slog: lg}, nil
}

// pebbleLogger adapts an slog.Logger to pebble's logging interface.
type pebbleLogger struct {
	lg *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...any) {
	l.lg.Debug("pebble", "msg", fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Errorf(format string, args ...any) {
	l.lg.Error("pebble", "msg", fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Fatalf(format string, args ...any) {
	l.lg.Error("pebble fatal", "msg", fmt.Sprintf(format, args...))
	panic(fmt.Sprintf(format, args...))
}

type db struct {
	p    *pebble.DB
	slog *slog.Logger
}

// panic logs the error and panics, in keeping with
// the storage.DB convention of panicking on I/O failure.
func (d *db) panic(op string, err error) {
	d.slog.Error("pebble error", "op", op, "err", err)
	panic(fmt.Errorf("pebble %s: %w", op, err))
}

func (d *db) Get(key []byte) (val []byte, ok bool) {
	v, closer, err := d.p.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		d.panic("get", err)
	}
	val = bytes.Clone(v)
	closer.Close()
	return val, true
}

func (d *db) Set(key, val []byte) {
	if err := d.p.Set(key, val, pebble.Sync); err != nil {
		d.panic("set", err)
	}
}

func (d *db) Delete(key []byte) {
	if err := d.p.Delete(key, pebble.Sync); err != nil {
		d.panic("delete", err)
	}
}

// after returns the smallest key greater than key,
// turning the inclusive end of a storage.DB range
// into pebble's exclusive upper bound.
func after(key []byte) []byte {
	return append(bytes.Clone(key), 0)
}

func (d *db) DeleteRange(start, end []byte) {
	if err := d.p.DeleteRange(start, after(end), pebble.Sync); err != nil {
		d.panic("delete range", err)
	}
}

func (d *db) Scan(start, end []byte) iter.Seq2[[]byte, func() []byte] {
	return func(yield func([]byte, func() []byte) bool) {
		it, err := d.p.NewIter(&pebble.IterOptions{
			LowerBound: start,
			UpperBound: after(end),
		})
		if err != nil {
			d.panic("scan", err)
		}
		defer it.Close()
		for it.First(); it.Valid(); it.Next() {
			key := bytes.Clone(it.Key())
			val := func() []byte {
				v, err := it.ValueAndErr()
				if err != nil {
					d.panic("scan value", err)
				}
				return bytes.Clone(v)
			}
			if !yield(key, val) {
				return
			}
		}
		if err := it.Error(); err != nil {
			d.panic("scan", err)
		}
	}
}

func (d *db) Batch() storage.Batch {
	return &batch{d: d, b: d.p.NewBatch()}
}

func (d *db) Flush() {
	if err := d.p.Flush(); err != nil {
		d.panic("flush", err)
	}
}

func (d *db) Close() {
	if err := d.p.Close(); err != nil {
		d.panic("close", err)
	}
}

type batch struct {
	d *db
	b *pebble.Batch
}

func (b *batch) Set(key, val []byte) {
	if err := b.b.Set(key, val, nil); err != nil {
		b.d.panic("batch set", err)
	}
}

func (b *batch) Delete(key []byte) {
	if err := b.b.Delete(key, nil); err != nil {
		b.d.panic("batch delete", err)
	}
}

func (b *batch) Apply() {
	if b.b.Empty() {
		return
	}
	if err := b.b.Commit(pebble.Sync); err != nil {
		b.d.panic("batch apply", err)
	}
	b.b.Close()
	b.b = b.d.p.NewBatch()
}
