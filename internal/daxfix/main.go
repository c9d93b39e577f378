// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Daxfix converts the RSCustomDaxFilter calls in a Tabular model file
// into plain DAX FILTER expressions and back again.
//
// Usage:
//
//	daxfix [flags] forward model.bim
//	daxfix [flags] reverse model.bim
//	daxfix [flags] scan model.bim
//	daxfix [flags] history model.bim
//	daxfix [flags] undo model.bim
//
// Forward rewrites every call
//
//	RSCustomDaxFilter(@Param, EqualToCondition, [Table].[Column], String)
//
// in the expressions of the model into
//
//	FILTER( ALL('Table'), 'Table'[Column] = "<Placeholder>") /* Param: Param */
//
// and reverse rewrites such FILTER expressions back into RSCustomDaxFilter calls.
// Without -w, forward and reverse only print diffs of the changes they would make.
// With -w, they write the model file back and record the changes in a journal,
// from which history lists past runs and undo reverts the most recent one.
//
// Scan lists the calls of both forms found in the model.
//
// The journal is kept in $HOME/.daxfix/journal. The -journal flag can name
// another directory, "pebble:DIR", or "mem" for a journal that lasts only
// as long as the command; an empty -journal disables journaling.
//
// The -select flag takes a comma-separated list of glob patterns matched
// against object paths such as "Sales/measures/Total Sales", and the -kind
// flag a comma-separated list of object kinds such as "measure,calculationItem".
//
// The -config flag names a YAML file that can set select, kinds, journal and level.
// Flags given on the command line override the file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/daxfilter/internal/daxfilter"
	"golang.org/x/daxfilter/internal/dbspec"
	"golang.org/x/daxfilter/internal/filterfix"
	"golang.org/x/daxfilter/internal/journal"
	"golang.org/x/daxfilter/internal/tabular"
)

const usageText = `usage: daxfix [flags] command model.bim

Commands are forward, reverse, scan, history and undo.

Flags:
`

// A usageError is a problem with the command line.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{fmt.Errorf(format, args...)}
}

type daxfixFlags struct {
	write   bool
	selects string
	kinds   string
	config  string
	journal string
	level   string
	confirm bool
	metrics bool
}

// daxfix holds the state of one invocation.
type daxfix struct {
	flags  daxfixFlags
	stdout io.Writer
	stderr io.Writer
	slog   *slog.Logger

	selects []string
	kinds   []tabular.Kind
	journal string // journal DB spec; "" disables the journal
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run runs daxfix with the given arguments and returns its exit status:
// 0 on success, 1 if the command failed and 2 for a usage error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	d := &daxfix{stdout: stdout, stderr: stderr}
	errlog := log.New(stderr, "daxfix: ", 0)

	fs := flag.NewFlagSet("daxfix", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	fs.BoolVar(&d.flags.write, "w", false, "write the rewritten model back to its file")
	fs.StringVar(&d.flags.selects, "select", "", "comma-separated glob `patterns` selecting objects by path")
	fs.StringVar(&d.flags.kinds, "kind", "", "comma-separated object `kinds` to rewrite")
	fs.StringVar(&d.flags.config, "config", "", "read settings from the YAML `file`")
	fs.StringVar(&d.flags.journal, "journal", defaultJournal(), "journal `db`: a directory, pebble:DIR or mem; empty disables the journal")
	fs.StringVar(&d.flags.level, "level", "warn", "log `level`")
	fs.BoolVar(&d.flags.confirm, "confirm", false, "ask before each edit")
	fs.BoolVar(&d.flags.metrics, "metrics", false, "print rewrite metrics to standard error on exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}

	err := d.configure(fs)
	if err == nil {
		err = d.do(ctx, fs.Arg(0), fs.Arg(1))
	}
	if err != nil {
		errlog.Print(err)
		var uerr *usageError
		if errors.As(err, &uerr) {
			return 2
		}
		return 1
	}
	return 0
}

// configure merges the configuration file and the flags into d.
func (d *daxfix) configure(fs *flag.FlagSet) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := new(config)
	if d.flags.config != "" {
		var err error
		if cfg, err = loadConfig(d.flags.config); err != nil {
			return &usageError{err}
		}
	}

	level := d.flags.level
	if cfg.Level != "" && !set["level"] {
		level = cfg.Level
	}
	lv := new(slog.LevelVar)
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return &usageError{err}
	}
	d.slog = slog.New(slog.NewTextHandler(d.stderr, &slog.HandlerOptions{Level: lv}))

	d.selects = cfg.Select
	if set["select"] {
		d.selects = splitList(d.flags.selects)
	}
	kinds := cfg.Kinds
	if set["kind"] {
		kinds = splitList(d.flags.kinds)
	}
	for _, name := range kinds {
		k, err := tabular.ParseKind(name)
		if err != nil {
			return &usageError{err}
		}
		d.kinds = append(d.kinds, k)
	}

	d.journal = d.flags.journal
	if cfg.Journal != nil && !set["journal"] {
		d.journal = *cfg.Journal
	}
	if d.journal != "" {
		if _, err := dbspec.Parse(d.journal); err != nil {
			return &usageError{err}
		}
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty elements.
func splitList(s string) []string {
	var list []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			list = append(list, f)
		}
	}
	return list
}

func (d *daxfix) do(ctx context.Context, cmd, file string) error {
	switch cmd {
	case "forward", "reverse":
		dir, err := daxfilter.ParseDirection(cmd)
		if err != nil {
			// unreachable: cmd is a direction name
			return err
		}
		return d.rewrite(ctx, dir, file)
	case "scan":
		return d.scan(file)
	case "history":
		return d.history(file)
	case "undo":
		return d.undo(ctx, file)
	}
	return usagef("unknown command %q", cmd)
}

// openJournal opens the journal.
// The returned function closes it.
func (d *daxfix) openJournal() (*journal.Journal, func(), error) {
	if d.journal == "" {
		return nil, nil, errors.New("journal disabled")
	}
	spec, err := dbspec.Parse(d.journal)
	if err != nil {
		// unreachable: checked by configure
		return nil, nil, err
	}
	db, err := spec.Open(d.slog)
	if err != nil {
		return nil, nil, err
	}
	return journal.New(d.slog, db), db.Close, nil
}

// load reads the model file and returns it with its journal name.
func load(file string) (*tabular.Document, string, error) {
	doc, err := tabular.ReadFile(file)
	if err != nil {
		return nil, "", err
	}
	model, err := filepath.Abs(file)
	if err != nil {
		return nil, "", err
	}
	return doc, model, nil
}

// newFixer returns a Fixer configured from the flags.
// The returned function must be called when the fixer is done.
func (d *daxfix) newFixer(dir daxfilter.Direction) (*filterfix.Fixer, func(), error) {
	f := filterfix.New(d.slog, dir)
	f.SetStdout(d.stdout)
	f.SetStderr(d.stderr)
	if err := f.Select(d.selects...); err != nil {
		return nil, nil, &usageError{err}
	}
	f.SelectKinds(d.kinds...)

	meter, shutdown, err := newMeter(d.slog, d.stderr, d.flags.metrics)
	if err != nil {
		return nil, nil, err
	}
	if err := f.SetMeter(meter); err != nil {
		shutdown()
		return nil, nil, err
	}
	if d.flags.write {
		f.EnableEdits()
		if d.flags.confirm {
			confirm, err := terminalConfirm(d.stdout)
			if err != nil {
				shutdown()
				return nil, nil, &usageError{err}
			}
			f.SetConfirm(confirm)
		}
	}
	return f, shutdown, nil
}

func (d *daxfix) rewrite(ctx context.Context, dir daxfilter.Direction, file string) error {
	doc, model, err := load(file)
	if err != nil {
		return err
	}
	f, done, err := d.newFixer(dir)
	if err != nil {
		return err
	}
	defer done()

	if d.flags.write && d.journal != "" {
		j, closeJournal, err := d.openJournal()
		if err != nil {
			return err
		}
		defer closeJournal()
		f.SetJournal(j)
	}

	rep, err := f.Run(ctx, doc, model)
	if err != nil {
		return err
	}
	return d.finish(doc, file, rep)
}

func (d *daxfix) undo(ctx context.Context, file string) error {
	doc, model, err := load(file)
	if err != nil {
		return err
	}
	j, closeJournal, err := d.openJournal()
	if err != nil {
		return err
	}
	defer closeJournal()

	f, done, err := d.newFixer(daxfilter.ToFilter)
	if err != nil {
		return err
	}
	defer done()
	f.SetJournal(j)

	rep, err := f.Undo(ctx, doc, model)
	if err != nil {
		return err
	}
	return d.finish(doc, file, rep)
}

// finish saves doc if rep says it changed, journals the edits
// once they are saved and prints the summary.
func (d *daxfix) finish(doc *tabular.Document, file string, rep *filterfix.Report) error {
	if rep.Dirty() {
		if err := doc.WriteFile(file); err != nil {
			return err
		}
		rep.Commit()
	}
	fmt.Fprintf(d.stderr, "%s: %v\n", file, rep)
	if !d.flags.write && rep.Changed > 0 {
		fmt.Fprintf(d.stderr, "%s: dry run; use -w to write changes\n", file)
	}
	return nil
}

func (d *daxfix) scan(file string) error {
	doc, _, err := load(file)
	if err != nil {
		return err
	}
	for _, dir := range []daxfilter.Direction{daxfilter.ToFilter, daxfilter.ToRS} {
		f := filterfix.New(d.slog, dir)
		if err := f.Select(d.selects...); err != nil {
			return &usageError{err}
		}
		f.SelectKinds(d.kinds...)
		for obj, c := range f.Scan(doc) {
			form := c.RSForm()
			if dir == daxfilter.ToRS {
				form = c.FilterForm()
			}
			fmt.Fprintf(d.stdout, "%s: %s\n", obj.Path(), form)
		}
	}
	return nil
}

func (d *daxfix) history(file string) error {
	model, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	j, closeJournal, err := d.openJournal()
	if err != nil {
		return err
	}
	defer closeJournal()

	for run := range j.Runs(model) {
		var entries []*journal.Entry
		for e := range j.RunEntries(model, run) {
			entries = append(entries, e)
		}
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(d.stdout, "%d %s %s\n", run, time.Unix(0, run).Format(time.RFC3339), entries[0].Direction)
		for _, e := range entries {
			fmt.Fprintf(d.stdout, "\t%s\n", e.Path)
		}
	}
	return nil
}
