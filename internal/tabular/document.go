// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tabular reads and writes Tabular model files (TMSL JSON, .bim)
// and presents the tables, measures, columns and other parts of a model
// as a sequence of [Object] values.
//
// Objects whose DAX can be rewritten implement [Expressioner].
// Setting an expression replaces only the bytes of that value in the
// file, so writing a [Document] back leaves every other byte of the
// original file unchanged.
package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ErrNotObject is returned when a model file does not hold a JSON object.
var ErrNotObject = errors.New("tabular: model is not a JSON object")

var bom = []byte("\xef\xbb\xbf")

// A Document is a Tabular model file.
type Document struct {
	data  []byte // file contents after any byte order mark
	bom   bool
	model string // gjson path of the model object; "" for a bare model
}

// Parse parses the model file contents data.
func Parse(data []byte) (*Document, error) {
	d := new(Document)
	if bytes.HasPrefix(data, bom) {
		d.bom = true
		data = data[len(bom):]
	}
	if err := checkJSON(data); err != nil {
		return nil, fmt.Errorf("tabular: %w", err)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrNotObject
	}
	d.data = bytes.Clone(data)
	if root.Get("model").IsObject() {
		d.model = "model"
	}
	return d, nil
}

// ReadFile reads and parses the named model file.
func ReadFile(name string) (*Document, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// get returns the value at path.
func (d *Document) get(path string) gjson.Result {
	return gjson.GetBytes(d.data, path)
}

// Name returns the name of the model (the database name for a .bim file).
func (d *Document) Name() string {
	if name := d.get("name").Str; name != "" {
		return name
	}
	return d.get(join(d.model, "name")).Str
}

// Bytes returns the encoded document.
func (d *Document) Bytes() []byte {
	if d.bom {
		return append(bytes.Clone(bom), d.data...)
	}
	return bytes.Clone(d.data)
}

// WriteFile writes the document to the named file.
// It writes a temporary file in the same directory and renames it
// into place, so a failed write leaves the original file intact.
// An existing file's permissions are kept.
func (d *Document) WriteFile(name string) error {
	perm := os.FileMode(0o666)
	if fi, err := os.Stat(name); err == nil {
		perm = fi.Mode().Perm()
	}
	f, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(d.Bytes()); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
