// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dbspec

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/daxfilter/internal/storage"
	"golang.org/x/daxfilter/internal/testutil"
)

func TestParse(t *testing.T) {
	dir := filepath.Join("some", "dir")
	for _, tc := range []struct {
		in      string
		want    Spec
		wantErr string // if non-empty, error should contain this
	}{
		{
			in:      "",
			wantErr: "empty",
		},
		{
			in:      "dynamo:dbname",
			wantErr: "unknown kind",
		},
		{
			in:   "mem",
			want: Spec{Kind: "mem"},
		},
		{
			in:      "mem:",
			wantErr: "invalid",
		},
		{
			in:   "pebble:" + dir,
			want: Spec{Kind: "pebble", Location: dir},
		},
		{
			in:      "pebble:",
			wantErr: "missing",
		},
		{
			in:   dir,
			want: Spec{Kind: "pebble", Location: dir},
		},
		{
			in:   "some/dir/",
			want: Spec{Kind: "pebble", Location: filepath.Clean("some/dir/")},
		},
		{
			in:   "memory",
			want: Spec{Kind: "pebble", Location: "memory"},
		},
		{
			in:   `C:\Users\me\.daxfix\journal`,
			want: Spec{Kind: "pebble", Location: filepath.Clean(`C:\Users\me\.daxfix\journal`)},
		},
		{
			in:   `pebble:C:\WINDOWS\WORKS`,
			want: Spec{Kind: "pebble", Location: filepath.Clean(`C:\WINDOWS\WORKS`)},
		},
		{
			in:   "/tmp/a:b",
			want: Spec{Kind: "pebble", Location: "/tmp/a:b"},
		},
	} {
		got, err := Parse(tc.in)
		if err != nil {
			if tc.wantErr == "" {
				t.Errorf("%q: unexpected error: %v", tc.in, err)
			} else if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("%q: got error %q, want it to contain %q", tc.in, err, tc.wantErr)
			}
			continue
		}
		if tc.wantErr != "" {
			t.Errorf("%q: got success, want error containing %q", tc.in, tc.wantErr)
			continue
		}
		if *got != tc.want {
			t.Errorf("%q:\ngot  %+v\nwant %+v", tc.in, got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	for _, in := range []string{"mem", "pebble:/a/b"} {
		s, err := Parse(in)
		testutil.Check(t, err)
		if got := s.String(); got != in {
			t.Errorf("Parse(%q).String() = %q", in, got)
		}
	}
}

func TestOpen(t *testing.T) {
	lg := testutil.Slogger(t)

	s, err := Parse("mem")
	testutil.Check(t, err)
	db, err := s.Open(lg)
	testutil.Check(t, err)
	storage.TestDB(t, db)

	dir := filepath.Join(t.TempDir(), "nested", "journal")
	s, err = Parse(dir)
	testutil.Check(t, err)
	db, err = s.Open(lg)
	testutil.Check(t, err)
	db.Set([]byte("k"), []byte("v"))
	db.Flush()
	db.Close()

	// Opening again finds the existing database.
	db, err = s.Open(lg)
	testutil.Check(t, err)
	defer db.Close()
	if v, ok := db.Get([]byte("k")); !ok || string(v) != "v" {
		t.Errorf("Get(k) after reopen = %q, %v, want v, true", v, ok)
	}

	if _, err := (&Spec{Kind: "dynamo"}).Open(lg); err == nil {
		t.Errorf("Open of unknown kind succeeded")
	}
}
