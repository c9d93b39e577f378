// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	if d := Diff("a", []byte("x\ny\n"), "b", []byte("x\ny\n")); d != nil {
		t.Fatalf("Diff of equal inputs = %q, want nil", d)
	}

	d := string(Diff("old", []byte("a\nb\nc\n"), "new", []byte("a\nB\nc\n")))
	for _, want := range []string{"--- old\n", "+++ new\n", "-b\n", "+B\n", " a\n", " c\n"} {
		if !strings.Contains(d, want) {
			t.Errorf("Diff output missing %q:\n%s", want, d)
		}
	}
}

func TestText(t *testing.T) {
	if d := Text("a\r\nb", "a\nb\n\n"); d != "" {
		t.Errorf("Text of texts differing only in line endings = %q, want empty", d)
	}
	d := Text("SUM(x)", "SUM(y)")
	if !strings.Contains(d, "-SUM(x)\n") || !strings.Contains(d, "+SUM(y)\n") {
		t.Errorf("Text(SUM(x), SUM(y)) = %q", d)
	}
}
