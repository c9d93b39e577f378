// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff computes line-oriented unified diffs.
package diff

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff of old and new, labeled with
// oldName and newName, using three lines of context.
// If old and new are identical, Diff returns nil.
func Diff(oldName string, old []byte, newName string, new []byte) []byte {
	if bytes.Equal(old, new) {
		return nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(string(new)),
		FromFile: oldName,
		ToFile:   newName,
		Context:  3,
	}
	var buf bytes.Buffer
	if err := difflib.WriteUnifiedDiff(&buf, ud); err != nil {
		// unreachable: bytes.Buffer writes do not fail
		panic(err)
	}
	return buf.Bytes()
}

// Text is like [Diff] for strings. Both texts are normalized to
// end in exactly one newline and to use \n line endings first,
// so that the diff shows only meaningful changes.
func Text(old, new string) string {
	return string(Diff("old", []byte(normalize(old)), "new", []byte(normalize(new))))
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimRight(s, "\n") + "\n"
}
