// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"iter"
	"slices"
	"sync"

	"rsc.io/omap"
)

// MemDB returns an in-memory DB implementation.
func MemDB() DB {
	return new(memDB)
}

type memDB struct {
	mu   sync.RWMutex
	data omap.Map[string, []byte]
}

func (db *memDB) Get(key []byte) (val []byte, ok bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	v, ok := db.data.Get(string(key))
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

func (db *memDB) Set(key, val []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.data.Set(string(key), bytes.Clone(val))
}

func (db *memDB) Delete(key []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.data.Delete(string(key))
}

func (db *memDB) DeleteRange(start, end []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.data.DeleteRange(string(start), string(end))
}

func (db *memDB) Scan(start, end []byte) iter.Seq2[[]byte, func() []byte] {
	return func(yield func([]byte, func() []byte) bool) {
		// Copy the range first so that yield can modify db.
		type kv struct {
			key string
			val []byte
		}
		db.mu.RLock()
		var list []kv
		for k, v := range db.data.Scan(string(start), string(end)) {
			list = append(list, kv{k, v})
		}
		db.mu.RUnlock()

		for _, e := range list {
			val := e.val
			if !yield([]byte(e.key), func() []byte { return bytes.Clone(val) }) {
				return
			}
		}
	}
}

func (db *memDB) Batch() Batch {
	return &memBatch{db: db}
}

func (db *memDB) Flush() {}

func (db *memDB) Close() {}

type memBatch struct {
	db  *memDB
	ops []func()
}

func (b *memBatch) Set(key, val []byte) {
	k, v := string(key), bytes.Clone(val)
	b.ops = append(b.ops, func() { b.db.data.Set(k, v) })
}

func (b *memBatch) Delete(key []byte) {
	k := string(key)
	b.ops = append(b.ops, func() { b.db.data.Delete(k) })
}

func (b *memBatch) Apply() {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()

	for _, op := range b.ops {
		op()
	}
	b.ops = slices.Delete(b.ops, 0, len(b.ops))
}
