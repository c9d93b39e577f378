// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package testutil

import (
	"os"
	"testing"

	"golang.org/x/tools/txtar"
)

func TestPairs(t *testing.T) {
	a := txtar.Parse([]byte("-- x.in --\n1\n-- x.out --\n2\n-- y.in --\n3\n-- y.out --\n4\n"))
	var names, data []string
	for name, f := range Pairs(t, a) {
		names = append(names, name)
		data = append(data, string(f[0])+string(f[1]))
	}
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Fatalf("names = %q, want [x y]", names)
	}
	if data[0] != "1\n2\n" || data[1] != "3\n4\n" {
		t.Fatalf("data = %q", data)
	}
}

func TestSlogBuffer(t *testing.T) {
	lg, buf := SlogBuffer()
	lg.Debug("hello", "n", 1)
	lg.Info("hello", "n", 2)
	ExpectLog(t, buf, "msg=hello", 2)
}

func TestWriteFile(t *testing.T) {
	file := WriteFile(t, t.TempDir(), "f.txt", []byte("data"))
	b, err := os.ReadFile(file)
	Check(t, err)
	if string(b) != "data" {
		t.Fatalf("read %q, want %q", b, "data")
	}
}
