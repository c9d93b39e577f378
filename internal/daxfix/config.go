// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// A config holds the settings that can be given in a configuration file.
// Command-line flags override them.
type config struct {
	Select  []string `yaml:"select"`
	Kinds   []string `yaml:"kinds"`
	Journal *string  `yaml:"journal"` // nil means the default; "" disables the journal
	Level   string   `yaml:"level"`
}

// loadConfig reads the named YAML configuration file.
// Unknown keys are an error, so that a misspelled setting is not ignored.
func loadConfig(file string) (*config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return parseConfig(file, data)
}

func parseConfig(file string, data []byte) (*config, error) {
	cfg := new(config)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// defaultJournal returns the default journal directory.
func defaultJournal() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".daxfix", "journal")
}
