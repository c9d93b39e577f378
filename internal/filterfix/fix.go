// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package filterfix applies RSCustomDaxFilter rewrites to the
// expressions of a Tabular model.
package filterfix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	ometric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/daxfilter/internal/daxfilter"
	"golang.org/x/daxfilter/internal/diff"
	"golang.org/x/daxfilter/internal/journal"
	"golang.org/x/daxfilter/internal/tabular"
)

// A Fixer rewrites the expressions of model objects in one direction.
// After creating a fixer with [New], the objects it considers can be
// narrowed with [Fixer.Select] and [Fixer.SelectKinds], and then
// [Fixer.Run] applies the rewrite to a [tabular.Document].
//
// By default a Fixer only prints what it would do.
// Call [Fixer.EnableEdits] to change the document.
type Fixer struct {
	slog    *slog.Logger
	dir     daxfilter.Direction
	edit    bool
	globs   []glob.Glob
	kinds   map[tabular.Kind]bool
	journal *journal.Journal
	confirm func(obj tabular.Object, diff string) bool

	stdoutw io.Writer
	stderrw io.Writer

	rewrites ometric.Int64Counter
	unknown  ometric.Int64Counter
	changed  ometric.Int64Counter
}

// New returns a new Fixer rewriting in direction dir.
// The Fixer logs status and errors to lg; if lg is nil, the Fixer does not log anything.
func New(lg *slog.Logger, dir daxfilter.Direction) *Fixer {
	if lg == nil {
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &Fixer{slog: lg, dir: dir}
	if err := f.SetMeter(noop.NewMeterProvider().Meter("")); err != nil {
		// unreachable: noop instruments never fail
		panic(err)
	}
	return f
}

// EnableEdits configures the fixer to write rewritten expressions
// back into the document and to record them in the journal, if any.
// If EnableEdits is not called, the Fixer only prints diffs of the
// edits it would make, and the document is left unchanged.
func (f *Fixer) EnableEdits() {
	f.edit = true
}

// Select limits the fixer to objects whose path matches one of the
// glob patterns. In a pattern, * matches within one path element
// and ** matches across elements, so "Sales/measures/*" selects the
// measures of the Sales table and "**/Total*" selects objects anywhere
// whose name begins with Total. Without patterns, all objects are selected.
func (f *Fixer) Select(patterns ...string) error {
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return fmt.Errorf("filterfix: bad pattern %q: %w", p, err)
		}
		f.globs = append(f.globs, g)
	}
	return nil
}

// SelectKinds limits the fixer to objects of the given kinds.
// Without kinds, all kinds are selected.
func (f *Fixer) SelectKinds(kinds ...tabular.Kind) {
	if f.kinds == nil {
		f.kinds = make(map[tabular.Kind]bool)
	}
	for _, k := range kinds {
		f.kinds[k] = true
	}
}

// SetJournal sets the journal used to record edits.
func (f *Fixer) SetJournal(j *journal.Journal) {
	f.journal = j
}

// SetConfirm sets a function asked before each edit.
// It is passed the object and a diff of its expression,
// and the edit is skipped unless it returns true.
func (f *Fixer) SetConfirm(confirm func(obj tabular.Object, diff string) bool) {
	f.confirm = confirm
}

// SetStdout sets the writer for the status lines printed for each edit.
func (f *Fixer) SetStdout(w io.Writer) {
	f.stdoutw = w
}

// SetStderr sets the writer to use for messages f intends to print to standard error.
// The Fixer prints readable multiline diffs there; they are also logged
// via the slog.Logger passed to New, but as one long quoted string.
func (f *Fixer) SetStderr(w io.Writer) {
	f.stderrw = w
}

func (f *Fixer) stdout() io.Writer {
	if f.stdoutw != nil {
		return f.stdoutw
	}
	return os.Stdout
}

func (f *Fixer) stderr() io.Writer {
	if f.stderrw != nil {
		return f.stderrw
	}
	return os.Stderr
}

// SetMeter sets the meter used to create the fixer's counters.
func (f *Fixer) SetMeter(m ometric.Meter) error {
	var err error
	if f.rewrites, err = m.Int64Counter("daxfilter/rewrites",
		ometric.WithDescription("number of filter calls rewritten")); err != nil {
		return err
	}
	if f.unknown, err = m.Int64Counter("daxfilter/unknown-conditions",
		ometric.WithDescription("number of calls rewritten with an unknown condition")); err != nil {
		return err
	}
	if f.changed, err = m.Int64Counter("daxfilter/objects-changed",
		ometric.WithDescription("number of model objects edited")); err != nil {
		return err
	}
	return nil
}

// A Report summarizes a call to [Fixer.Run] or [Fixer.Undo].
type Report struct {
	Examined int      // objects whose expression was examined
	Skipped  int      // objects not examined or not edited
	Changed  int      // objects edited, or that would be edited in a dry run
	Rewrites int      // filter calls rewritten
	Unknown  int      // calls rewritten with an unknown condition
	Objects  []string // paths of the changed objects, in order

	edited bool
	run    *journal.Run // edits not yet committed to the journal
}

// Commit records the edits of the run in the journal, if there is one.
// Call Commit after the edited document has been saved.
func (r *Report) Commit() {
	if r.run != nil {
		r.run.Commit()
		r.run = nil
	}
}

// Dirty reports whether the document was modified and must be saved.
func (r *Report) Dirty() bool {
	return r.edited && r.Changed > 0
}

func (r *Report) String() string {
	return fmt.Sprintf("examined %d, changed %d, skipped %d, rewrites %d, unknown conditions %d",
		r.Examined, r.Changed, r.Skipped, r.Rewrites, r.Unknown)
}

// selected reports whether obj passes the fixer's selection.
func (f *Fixer) selected(obj tabular.Object) bool {
	if len(f.kinds) > 0 && !f.kinds[obj.Kind()] {
		return false
	}
	if len(f.globs) == 0 {
		return true
	}
	for _, g := range f.globs {
		if g.Match(obj.Path()) {
			return true
		}
	}
	return false
}

// expression returns the expression of obj if f should look at it.
func (f *Fixer) expression(obj tabular.Object) (tabular.Expressioner, string, bool) {
	if !f.selected(obj) {
		return nil, "", false
	}
	x, ok := obj.(tabular.Expressioner)
	if !ok {
		return nil, "", false
	}
	expr, ok := x.Expression()
	if !ok || strings.TrimSpace(expr) == "" {
		return nil, "", false
	}
	return x, expr, true
}

// Run rewrites the expressions of the selected objects in doc.
// The model names the document in the journal, normally by its absolute file name.
//
// With edits enabled and a journal set, the edits are held in the
// returned report until [Report.Commit] is called.
//
// Run stops early and returns ctx.Err() if ctx is canceled;
// in that case the document should not be saved.
func (f *Fixer) Run(ctx context.Context, doc *tabular.Document, model string) (*Report, error) {
	rep := &Report{edited: f.edit}
	var run *journal.Run
	if f.edit && f.journal != nil {
		run = f.journal.Begin(model, f.dir.String())
	}
	for obj := range doc.Objects() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		f.fixObject(ctx, obj, rep, run)
	}
	rep.run = run
	f.slog.Info("filterfix done", "model", model, "direction", f.dir, "edit", f.edit, "report", rep.String())
	return rep, nil
}

func (f *Fixer) fixObject(ctx context.Context, obj tabular.Object, rep *Report, run *journal.Run) {
	defer func() {
		if e := recover(); e != nil {
			f.slog.Error("filterfix panic", "path", obj.Path(), "err", e)
			rep.Skipped++
		}
	}()

	x, expr, ok := f.expression(obj)
	if !ok {
		f.slog.Debug("filterfix skip", "path", obj.Path(), "kind", obj.Kind())
		rep.Skipped++
		return
	}
	rep.Examined++

	res := f.dir.Rewrite(expr)
	if !res.Changed {
		return
	}
	d := diff.Text(expr, res.Text)
	f.slog.Info("filterfix rewrite", "path", obj.Path(), "rewrites", res.Rewrites, "unknown", res.Unknown, "edit", f.edit, "diff", d)
	fmt.Fprintf(f.stderr(), "Fix %s:\n%s\n", obj.Path(), d)

	if f.edit {
		if f.confirm != nil && !f.confirm(obj, d) {
			f.slog.Info("filterfix declined", "path", obj.Path())
			rep.Skipped++
			return
		}
		x.SetExpression(res.Text)
		if run != nil {
			run.Record(obj.Path(), obj.Name(), expr, res.Text)
		}
		f.slog.Info("filterfix edit", "path", obj.Path())
		fmt.Fprintf(f.stdout(), "✅ %s: %s\n", f.verb(), obj.Name())

		dir := ometric.WithAttributes(attribute.String("direction", f.dir.String()))
		f.rewrites.Add(ctx, int64(res.Rewrites), dir)
		f.unknown.Add(ctx, int64(res.Unknown), dir)
		f.changed.Add(ctx, 1, dir)
	}
	rep.Changed++
	rep.Rewrites += res.Rewrites
	rep.Unknown += res.Unknown
	rep.Objects = append(rep.Objects, obj.Path())
}

// verb returns the status word printed for an edit.
func (f *Fixer) verb() string {
	if f.dir == daxfilter.ToRS {
		return "Reverted"
	}
	return "Updated"
}

// Scan returns the calls f would rewrite in the selected objects of doc,
// without changing anything.
func (f *Fixer) Scan(doc *tabular.Document) iter.Seq2[tabular.Object, daxfilter.Capture] {
	return func(yield func(tabular.Object, daxfilter.Capture) bool) {
		for obj := range doc.Objects() {
			_, expr, ok := f.expression(obj)
			if !ok {
				continue
			}
			for c := range f.dir.Matches(expr) {
				if !yield(obj, c) {
					return
				}
			}
		}
	}
}

// ErrNoRun is returned by [Fixer.Undo] when the journal holds no run for the model.
var ErrNoRun = errors.New("filterfix: no journaled run to undo")

// Undo reverts the most recent journaled run for model.
// Objects whose expression no longer matches what the run wrote
// are left alone and counted as skipped.
// With edits enabled, the restore is journaled as a run of its own
// with direction "undo" once [Report.Commit] is called,
// so a second Undo reapplies the original run.
//
// Undo ignores the fixer's direction and selection.
func (f *Fixer) Undo(ctx context.Context, doc *tabular.Document, model string) (*Report, error) {
	if f.journal == nil {
		return nil, errors.New("filterfix: Undo without journal")
	}
	last, ok := f.journal.LastRun(model)
	if !ok {
		return nil, ErrNoRun
	}
	var entries []*journal.Entry
	for e := range f.journal.RunEntries(model, last) {
		entries = append(entries, e)
	}

	rep := &Report{edited: f.edit}
	var run *journal.Run
	if f.edit {
		run = f.journal.Begin(model, "undo")
	}
	// Restore in reverse order in case an object was edited twice.
	for i := len(entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		e := entries[i]
		obj, ok := doc.Lookup(e.Path)
		if !ok {
			f.slog.Warn("filterfix undo missing object", "path", e.Path, "run", last)
			rep.Skipped++
			continue
		}
		x, ok := obj.(tabular.Expressioner)
		if !ok {
			// unreachable unless the model changed shape
			f.slog.Warn("filterfix undo not an expression", "path", e.Path, "kind", obj.Kind())
			rep.Skipped++
			continue
		}
		rep.Examined++
		if cur, _ := x.Expression(); cur != e.New {
			f.slog.Warn("filterfix undo stale", "path", e.Path, "run", last)
			rep.Skipped++
			continue
		}
		d := diff.Text(e.New, e.Old)
		fmt.Fprintf(f.stderr(), "Restore %s:\n%s\n", e.Path, d)
		if f.edit {
			if f.confirm != nil && !f.confirm(obj, d) {
				f.slog.Info("filterfix declined", "path", e.Path)
				rep.Skipped++
				continue
			}
			x.SetExpression(e.Old)
			run.Record(e.Path, e.Name, e.New, e.Old)
			f.slog.Info("filterfix restore", "path", e.Path, "run", last)
			fmt.Fprintf(f.stdout(), "✅ Restored: %s\n", obj.Name())
		}
		rep.Changed++
		rep.Objects = append(rep.Objects, e.Path)
	}
	rep.run = run
	return rep, nil
}
