// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package journal records applied expression rewrites in a database.

Every time a model is rewritten with edits enabled, the changes made
to it form one run. Each entry of a run records the object that was
changed along with its expression before and after the change, which
is enough to list the history of a model and to undo the last run.

Journal keys have the form

	["daxfilter.Journal", model, run, seq]

where model is the absolute path of the model file, run is the
start time of the run in Unix nanoseconds, and seq numbers the
entries within a run. Values are JSON-encoded [Entry] values.
*/
package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/daxfilter/internal/storage"
	"rsc.io/ordered"
)

const journalKind = "daxfilter.Journal"

// An Entry is one recorded expression change.
type Entry struct {
	Model     string    // model file
	Run       int64     // run identifier, the run start time in Unix nanoseconds
	Seq       int       // position within the run
	Time      time.Time // time of the change
	Direction string    // "forward", "reverse", or "undo"
	Path      string    // object path within the model
	Name      string    // object display name
	Old       string    // expression before the change
	New       string    // expression after the change
}

// A Journal records runs in a database.
type Journal struct {
	slog *slog.Logger
	db   storage.DB

	mu      sync.Mutex
	lastRun int64
}

// New returns a Journal storing its entries in db.
// The Journal logs to lg; if lg is nil, it does not log anything.
func New(lg *slog.Logger, db storage.DB) *Journal {
	if lg == nil {
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journal{slog: lg, db: db}
}

func key(model string, run int64, seq int) []byte {
	return ordered.Encode(journalKind, model, run, seq)
}

// A Run collects the entries of one run until [Run.Commit].
type Run struct {
	j         *Journal
	model     string
	id        int64
	direction string
	entries   []*Entry
}

// Begin starts a new run for model.
// Run identifiers are strictly increasing for a Journal,
// even if the clock does not advance between runs.
func (j *Journal) Begin(model, direction string) *Run {
	j.mu.Lock()
	id := time.Now().UnixNano()
	if last, ok := j.LastRun(model); ok && last > j.lastRun {
		j.lastRun = last
	}
	if id <= j.lastRun {
		id = j.lastRun + 1
	}
	j.lastRun = id
	j.mu.Unlock()

	return &Run{j: j, model: model, id: id, direction: direction}
}

// ID returns the run identifier.
func (r *Run) ID() int64 {
	return r.id
}

// Record adds a change to the run.
func (r *Run) Record(path, name, old, new string) {
	r.entries = append(r.entries, &Entry{
		Model:     r.model,
		Run:       r.id,
		Seq:       len(r.entries),
		Time:      time.Now(),
		Direction: r.direction,
		Path:      path,
		Name:      name,
		Old:       old,
		New:       new,
	})
}

// Len returns the number of entries recorded so far.
func (r *Run) Len() int {
	return len(r.entries)
}

// Commit writes the run's entries to the database.
// A run without entries writes nothing.
func (r *Run) Commit() {
	if len(r.entries) == 0 {
		return
	}
	b := r.j.db.Batch()
	for _, e := range r.entries {
		data, err := json.Marshal(e)
		if err != nil {
			// unreachable: Entry has only marshalable fields
			panic(fmt.Sprintf("journal: marshal entry: %v", err))
		}
		b.Set(key(e.Model, e.Run, e.Seq), data)
	}
	b.Apply()
	r.j.db.Flush()
	r.j.slog.Info("journal commit", "model", r.model, "run", r.id, "direction", r.direction, "entries", len(r.entries))
	r.entries = nil
}

// Entries returns all entries recorded for model, oldest first.
func (j *Journal) Entries(model string) iter.Seq[*Entry] {
	return j.scan(ordered.Encode(journalKind, model), ordered.Encode(journalKind, model, ordered.Inf))
}

// RunEntries returns the entries of one run for model, in order.
func (j *Journal) RunEntries(model string, run int64) iter.Seq[*Entry] {
	return j.scan(ordered.Encode(journalKind, model, run), ordered.Encode(journalKind, model, run, ordered.Inf))
}

// Runs returns the identifiers of all runs recorded for model, oldest first.
func (j *Journal) Runs(model string) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		last := int64(0)
		for key := range j.db.Scan(ordered.Encode(journalKind, model), ordered.Encode(journalKind, model, ordered.Inf)) {
			var (
				kind, m string
				run     int64
				seq     int
			)
			if err := ordered.Decode(key, &kind, &m, &run, &seq); err != nil {
				j.slog.Error("journal bad key", "key", fmt.Sprintf("%q", key), "err", err)
				continue
			}
			if run == last {
				continue
			}
			last = run
			if !yield(run) {
				return
			}
		}
	}
}

// LastRun returns the identifier of the most recent run recorded for model.
func (j *Journal) LastRun(model string) (run int64, ok bool) {
	for r := range j.Runs(model) {
		run, ok = r, true
	}
	return run, ok
}

func (j *Journal) scan(start, end []byte) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for key, val := range j.db.Scan(start, end) {
			var e Entry
			if err := json.Unmarshal(val(), &e); err != nil {
				j.slog.Error("journal bad entry", "key", fmt.Sprintf("%q", key), "err", err)
				continue
			}
			if !yield(&e) {
				return
			}
		}
	}
}
