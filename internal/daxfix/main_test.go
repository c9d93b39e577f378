// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/daxfilter/internal/daxfilter"
	"golang.org/x/daxfilter/internal/filterfix"
	"golang.org/x/daxfilter/internal/journal"
	"golang.org/x/daxfilter/internal/storage"
	"golang.org/x/daxfilter/internal/tabular"
	"golang.org/x/daxfilter/internal/testutil"
)

const modelText = `{
  "name": "M",
  "model": {
    "tables": [
      {
        "name": "Sales",
        "measures": [
          {
            "name": "Regional",
            "expression": "CALCULATE(SUM(Sales[Amount]), RSCustomDaxFilter(@RegionParam, EqualToCondition, [Sales].[Region], String))"
          },
          {
            "name": "Plain",
            "expression": "SUM(Sales[Amount])"
          }
        ],
        "columns": [
          {
            "type": "calculated",
            "name": "Big",
            "expression": "IF(RSCustomDaxFilter(@Min, GreaterThanCondition, [Sales].[Amount], Int64), 1, 0)"
          }
        ]
      }
    ]
  }
}
`

var forwardRegional = `CALCULATE(SUM(Sales[Amount]), FILTER( ALL('Sales'), 'Sales'[Region] = \"<Placeholder>\") /* Param: RegionParam */)`

type result struct {
	status         int
	stdout, stderr string
}

// runDaxfix runs the command with args, using dir for the journal.
func runDaxfix(t *testing.T, dir string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"-journal", filepath.Join(dir, "journal")}, args...)
	status := run(context.Background(), args, &stdout, &stderr)
	t.Logf("daxfix %s: exit %d\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), status, &stdout, &stderr)
	return result{status, stdout.String(), stderr.String()}
}

func readFile(t *testing.T, file string) string {
	t.Helper()
	data, err := os.ReadFile(file)
	testutil.Check(t, err)
	return string(data)
}

func TestUsage(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))
	for _, args := range [][]string{
		{},
		{"forward"},
		{"forward", file, "extra"},
		{"sideways", file},
		{"-kind", "widget", "forward", file},
		{"-level", "loud", "forward", file},
		{"-select", "Sales/[a", "forward", file},
		{"-nosuchflag", "forward", file},
		{"-journal", "dynamo:x", "forward", file},
	} {
		if r := runDaxfix(t, dir, args...); r.status != 2 {
			t.Errorf("daxfix %q: exit %d, want 2", args, r.status)
		}
	}
	if r := runDaxfix(t, dir, "forward", filepath.Join(dir, "missing.bim")); r.status != 1 {
		t.Errorf("daxfix on missing file: exit %d, want 1", r.status)
	}
	bad := testutil.WriteFile(t, dir, "bad.bim", []byte("[1, 2]"))
	if r := runDaxfix(t, dir, "forward", bad); r.status != 1 {
		t.Errorf("daxfix on bad model: exit %d, want 1", r.status)
	}
}

func TestDryRun(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))

	r := runDaxfix(t, dir, "forward", file)
	if r.status != 0 {
		t.Fatalf("exit %d, want 0", r.status)
	}
	if readFile(t, file) != modelText {
		t.Errorf("dry run changed the model file")
	}
	if r.stdout != "" {
		t.Errorf("dry run stdout = %q, want empty", r.stdout)
	}
	for _, want := range []string{"Fix Sales/measures/Regional:", "Fix Sales/columns/Big:", "dry run"} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("stderr missing %q", want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "journal")); err == nil {
		t.Errorf("dry run created the journal")
	}
}

func TestWriteHistoryUndo(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))

	r := runDaxfix(t, dir, "-w", "forward", file)
	if r.status != 0 {
		t.Fatalf("forward -w: exit %d, want 0", r.status)
	}
	if want := "✅ Updated: Regional\n✅ Updated: Big\n"; r.stdout != want {
		t.Errorf("forward -w stdout = %q, want %q", r.stdout, want)
	}
	text := readFile(t, file)
	if !strings.Contains(text, forwardRegional) {
		t.Errorf("model file not rewritten:\n%s", text)
	}

	r = runDaxfix(t, dir, "scan", file)
	if r.status != 0 {
		t.Fatalf("scan: exit %d, want 0", r.status)
	}
	want := "Sales/measures/Regional: FILTER( ALL('Sales'), 'Sales'[Region] = \"<Placeholder>\") /* Param: RegionParam */\n" +
		"Sales/columns/Big: FILTER( ALL('Sales'), 'Sales'[Amount] > \"<Placeholder>\") /* Param: Min */\n"
	if r.stdout != want {
		t.Errorf("scan stdout = %q, want %q", r.stdout, want)
	}

	r = runDaxfix(t, dir, "history", file)
	if r.status != 0 {
		t.Fatalf("history: exit %d, want 0", r.status)
	}
	lines := strings.Split(strings.TrimSuffix(r.stdout, "\n"), "\n")
	if len(lines) != 3 || !strings.HasSuffix(lines[0], " forward") {
		t.Fatalf("history stdout = %q, want one forward run with two objects", r.stdout)
	}
	if diff := cmp.Diff([]string{"\tSales/measures/Regional", "\tSales/columns/Big"}, lines[1:]); diff != "" {
		t.Errorf("history objects mismatch (-want +got):\n%s", diff)
	}

	r = runDaxfix(t, dir, "-w", "undo", file)
	if r.status != 0 {
		t.Fatalf("undo -w: exit %d, want 0", r.status)
	}
	if want := "✅ Restored: Big\n✅ Restored: Regional\n"; r.stdout != want {
		t.Errorf("undo stdout = %q, want %q", r.stdout, want)
	}
	if text := readFile(t, file); text != modelText {
		t.Errorf("undo did not restore the model:\n%s", text)
	}

	r = runDaxfix(t, dir, "history", file)
	if n := strings.Count(r.stdout, " undo\n"); n != 1 {
		t.Errorf("history lists %d undo runs, want 1:\n%s", n, r.stdout)
	}

	// The journal is keyed by absolute path.
	other := testutil.WriteFile(t, dir, "other.bim", []byte(modelText))
	if r := runDaxfix(t, dir, "-w", "undo", other); r.status != 1 {
		t.Errorf("undo of unjournaled model: exit %d, want 1", r.status)
	}
}

func TestReverseSelect(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))
	if r := runDaxfix(t, dir, "-w", "forward", file); r.status != 0 {
		t.Fatalf("forward -w: exit %d, want 0", r.status)
	}

	r := runDaxfix(t, dir, "-w", "-kind", "measure", "reverse", file)
	if r.status != 0 {
		t.Fatalf("reverse -w: exit %d, want 0", r.status)
	}
	if want := "✅ Reverted: Regional\n"; r.stdout != want {
		t.Errorf("reverse stdout = %q, want %q", r.stdout, want)
	}
	text := readFile(t, file)
	if !strings.Contains(text, "RSCustomDaxFilter(@RegionParam, EqualToCondition, [Sales].[Region], String)") {
		t.Errorf("measure not reverted:\n%s", text)
	}
	if !strings.Contains(text, `'Sales'[Amount] > \"<Placeholder>\"`) {
		t.Errorf("unselected column was reverted:\n%s", text)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))
	cfg := testutil.WriteFile(t, dir, "daxfix.yaml", []byte("select: [\"*/columns/*\"]\nlevel: debug\njournal: \"\"\n"))

	r := runDaxfix(t, dir, "-config", cfg, "-w", "forward", file)
	if r.status != 0 {
		t.Fatalf("forward -w: exit %d, want 0", r.status)
	}
	if want := "✅ Updated: Big\n"; r.stdout != want {
		t.Errorf("stdout = %q, want %q", r.stdout, want)
	}
	if !strings.Contains(r.stderr, "level=DEBUG") {
		t.Errorf("config level not applied")
	}

	// The -journal flag given by the test helper overrides the file.
	if _, err := os.Stat(filepath.Join(dir, "journal")); err != nil {
		t.Errorf("journal not created: %v", err)
	}

	// Flags override the file.
	r = runDaxfix(t, dir, "-config", cfg, "-select", "", "-w", "forward", file)
	if want := "✅ Updated: Regional\n"; r.stdout != want {
		t.Errorf("stdout with -select override = %q, want %q", r.stdout, want)
	}

	bad := testutil.WriteFile(t, dir, "bad.yaml", []byte("slect: [x]\n"))
	if r := runDaxfix(t, dir, "-config", bad, "forward", file); r.status != 2 {
		t.Errorf("config with unknown key: exit %d, want 2", r.status)
	}
}

func TestJournalDisabled(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))
	var stdout, stderr bytes.Buffer
	if status := run(context.Background(), []string{"-journal", "", "-w", "forward", file}, &stdout, &stderr); status != 0 {
		t.Fatalf("forward -w without journal: exit %d\n%s", status, &stderr)
	}
	if status := run(context.Background(), []string{"-journal", "", "history", file}, &stdout, &stderr); status != 1 {
		t.Errorf("history without journal: exit %d, want 1", status)
	}
}

func TestMetricsFlag(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, dir, "model.bim", []byte(modelText))
	r := runDaxfix(t, dir, "-metrics", "-w", "forward", file)
	if r.status != 0 {
		t.Fatalf("exit %d, want 0", r.status)
	}
	for _, name := range []string{"daxfilter/rewrites", "daxfilter/objects-changed"} {
		if !strings.Contains(r.stderr, name) {
			t.Errorf("stderr missing metric %s", name)
		}
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig("x.yaml", []byte("select: [a, b]\nkinds: [measure]\njournal: /tmp/j\nlevel: info\n"))
	testutil.Check(t, err)
	j := "/tmp/j"
	want := &config{Select: []string{"a", "b"}, Kinds: []string{"measure"}, Journal: &j, Level: "info"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("parseConfig mismatch (-want +got):\n%s", diff)
	}

	cfg, err = parseConfig("empty.yaml", nil)
	testutil.Check(t, err)
	if diff := cmp.Diff(&config{}, cfg); diff != "" {
		t.Errorf("empty config mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseConfig("bad.yaml", []byte("kinds: measure\n")); err == nil {
		t.Errorf("parseConfig with scalar kinds succeeded")
	}
}

func TestSplitList(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b/c"}, splitList(" a, ,b/c,")); diff != "" {
		t.Errorf("splitList mismatch (-want +got):\n%s", diff)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %q, want nil", got)
	}
}

func TestYes(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want bool
	}{
		{"y", true},
		{" YES\n", true},
		{"Y", true},
		{"", false},
		{"n", false},
		{"yep", false},
	} {
		if got := yes(tt.in); got != tt.want {
			t.Errorf("yes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPackageDoc(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "main.go", nil, parser.ParseComments|parser.PackageClauseOnly)
	testutil.Check(t, err)
	if f.Doc == nil {
		t.Fatal("main.go has no package doc")
	}
	doc := f.Doc.Text()
	for _, s := range []string{
		"RSCustomDaxFilter(@Param, EqualToCondition, [Table].[Column], String)",
		`FILTER( ALL('Table'), 'Table'[Column] = "<Placeholder>") /* Param: Param */`,
		"an empty -journal disables journaling",
	} {
		if !strings.Contains(doc, s) {
			t.Errorf("package doc does not contain %q", s)
		}
	}
}

func TestFailedSaveNotJournaled(t *testing.T) {
	doc, err := tabular.Parse([]byte(modelText))
	testutil.Check(t, err)
	j := journal.New(testutil.Slogger(t), storage.MemDB())
	f := filterfix.New(testutil.Slogger(t), daxfilter.ToFilter)
	f.SetStdout(io.Discard)
	f.SetStderr(io.Discard)
	f.EnableEdits()
	f.SetJournal(j)
	const model = "/models/m.bim"
	rep, err := f.Run(context.Background(), doc, model)
	testutil.Check(t, err)
	if !rep.Dirty() {
		t.Fatal("forward run changed nothing")
	}

	var stdout, stderr bytes.Buffer
	d := &daxfix{stdout: &stdout, stderr: &stderr}
	d.flags.write = true
	file := filepath.Join(t.TempDir(), "missing", "m.bim")
	if err := d.finish(doc, file, rep); err == nil {
		t.Fatal("finish into a missing directory succeeded")
	}
	if run, ok := j.LastRun(model); ok {
		t.Errorf("failed save journaled run %d", run)
	}
}
