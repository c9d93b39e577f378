// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/daxfilter/internal/tabular"
	"golang.org/x/term"
)

var errNoTerminal = errors.New("-confirm requires standard input to be a terminal")

// terminalConfirm returns a confirmation function that asks
// on the terminal before each edit.
func terminalConfirm(stdout io.Writer) (func(tabular.Object, string) bool, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNoTerminal
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, stdout}, "")
	return func(obj tabular.Object, _ string) bool {
		// The diff has already been printed by the fixer.
		t.SetPrompt(fmt.Sprintf("apply to %s? [y/N] ", obj.Path()))
		line, err := readLine(fd, t)
		if err != nil {
			return false
		}
		return yes(line)
	}, nil
}

func readLine(fd int, t *term.Terminal) (string, error) {
	old, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(fd, old)
	return t.ReadLine()
}

// yes reports whether line is an affirmative answer.
func yes(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
