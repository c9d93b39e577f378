// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testutil implements various testing utilities.
package testutil

import (
	"bytes"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// LogWriter returns an [io.Writer] that logs each Write using t.Log.
func LogWriter(t *testing.T) io.Writer {
	return testWriter{t}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(b []byte) (int, error) {
	w.t.Logf("%s", b)
	return len(b), nil
}

// Slogger returns a [*slog.Logger] that writes each message
// using t.Log.
func Slogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(LogWriter(t), nil))
}

// SlogBuffer returns a [*slog.Logger] that writes each message to out.
func SlogBuffer() (lg *slog.Logger, out *bytes.Buffer) {
	var buf bytes.Buffer
	lg = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return lg, &buf
}

// Check calls t.Fatal(err) if err is not nil.
func Check(t *testing.T, err error) {
	if err != nil {
		t.Helper()
		t.Fatal(err)
	}
}

// Checker returns a check function that
// calls t.Fatal if err is not nil.
func Checker(t *testing.T) (check func(err error)) {
	return func(err error) {
		if err != nil {
			t.Helper()
			t.Fatal(err)
		}
	}
}

// ExpectLog checks if the message is present in buf exactly n times,
// and calls t.Error if not.
func ExpectLog(t *testing.T, buf *bytes.Buffer, message string, n int) {
	t.Helper()
	if mentions := bytes.Count(buf.Bytes(), []byte(message)); mentions != n {
		t.Errorf("logs mention %q %d times, want %d mentions:\n%s", message, mentions, n, buf.Bytes())
	}
}

// Pairs returns the name.in, name.out file pairs of a golden archive,
// yielding name and the two file contents.
// It calls t.Fatal if the files do not come in matching pairs.
func Pairs(t *testing.T, a *txtar.Archive) iter.Seq2[string, [2][]byte] {
	return func(yield func(string, [2][]byte) bool) {
		if len(a.Files)%2 != 0 {
			t.Fatalf("archive has %d files, want in/out pairs", len(a.Files))
		}
		for i := 0; i+2 <= len(a.Files); i += 2 {
			in, out := a.Files[i], a.Files[i+1]
			name := strings.TrimSuffix(in.Name, ".in")
			if name == in.Name || name != strings.TrimSuffix(out.Name, ".out") {
				t.Fatalf("mismatched file pair: %s and %s", in.Name, out.Name)
			}
			if !yield(name, [2][]byte{in.Data, out.Data}) {
				return
			}
		}
	}
}

// WriteFile writes data to the named file in dir and returns its path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	file := filepath.Join(dir, name)
	Check(t, os.WriteFile(file, data, 0o666))
	return file
}
