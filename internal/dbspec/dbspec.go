// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbspec implements a string notation for referring to a journal database.
// A DB specification can take one of these forms:
//
// pebble:DIR
//
//	A Pebble database in the directory DIR, created if needed.
//	DIR can be relative or absolute.
//
// mem
//
//	An in-memory database, discarded when the program exits.
//
// DIR
//
//	Any other string is shorthand for pebble:DIR.
//	A prefix such as "C:" naming a Windows drive is part of the directory,
//	but a longer prefix ending in a colon must name a known kind.
package dbspec

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/daxfilter/internal/pebble"
	"golang.org/x/daxfilter/internal/storage"
)

// A Spec is the parsed representation of a DB specification string.
type Spec struct {
	Kind     string // "pebble" or "mem"
	Location string // directory, for pebble
}

func (s *Spec) String() string {
	switch s.Kind {
	case "mem":
		return "mem"
	case "pebble":
		return "pebble:" + s.Location
	default:
		return fmt.Sprintf("%#v", s)
	}
}

// Open opens the database described by the spec.
func (s *Spec) Open(lg *slog.Logger) (storage.DB, error) {
	switch s.Kind {
	case "mem":
		return storage.MemDB(), nil
	case "pebble":
		if err := os.MkdirAll(s.Location, 0o777); err != nil {
			return nil, err
		}
		return pebble.OpenOrCreate(lg, s.Location)
	default:
		return nil, fmt.Errorf("unknown DB kind %q", s.Kind)
	}
}

// Parse parses a DB specification string into a [Spec].
func Parse(s string) (_ *Spec, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("dbspec.Parse(%q): %v", s, err)
		}
	}()

	if s == "" {
		return nil, errors.New("empty spec")
	}
	kind, rest, hasColon := strings.Cut(s, ":")
	if !hasColon || len(kind) == 1 {
		if s == "mem" {
			return &Spec{Kind: "mem"}, nil
		}
		return &Spec{Kind: "pebble", Location: filepath.Clean(s)}, nil
	}

	switch kind {
	case "mem":
		return nil, errors.New("invalid 'mem' spec: should be mem")
	case "pebble":
		if rest == "" {
			return nil, errors.New("pebble spec missing directory; want pebble:DIR")
		}
		return &Spec{Kind: "pebble", Location: filepath.Clean(rest)}, nil
	}
	if strings.ContainsAny(kind, `/\`) {
		// A directory name containing a colon.
		return &Spec{Kind: "pebble", Location: filepath.Clean(s)}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}
