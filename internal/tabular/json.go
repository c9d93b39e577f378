// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var errSyntax = errors.New("invalid JSON")

// checkJSON reports whether data holds exactly one valid JSON value.
func checkJSON(data []byte) error {
	if gjson.ValidBytes(data) {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		var serr *json.SyntaxError
		if errors.As(err, &serr) {
			return fmt.Errorf("%w at offset %d: %v", errSyntax, serr.Offset, serr)
		}
		return fmt.Errorf("%w: %v", errSyntax, err)
	}
	return errSyntax
}

// join returns the gjson path of member key below path.
func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// index returns the gjson path of element i of the array at path.
func index(path string, i int) string {
	return join(path, strconv.Itoa(i))
}

// readExpr returns the expression held in v.
// TMSL writes an expression either as a string or,
// when it spans several lines, as an array of lines.
func readExpr(v gjson.Result) (string, bool) {
	switch {
	case v.Type == gjson.String:
		return v.Str, true
	case v.IsArray():
		var lines []string
		ok := true
		v.ForEach(func(_, e gjson.Result) bool {
			if e.Type != gjson.String {
				ok = false
				return false
			}
			lines = append(lines, e.Str)
			return true
		})
		if !ok {
			return "", false
		}
		return strings.Join(lines, "\n"), true
	}
	return "", false
}

// setRaw replaces the value at path in data with raw, leaving
// every other byte of data as it was.
func setRaw(data []byte, path string, raw []byte) []byte {
	out, err := sjson.SetRawBytes(data, path, raw)
	if err != nil {
		// unreachable: paths are built by join and index
		panic(fmt.Sprintf("tabular: setting %s: %v", path, err))
	}
	return out
}

// exprValue returns the encoding of expr to replace old.
// If old is an array of lines, the result is too, laid out like old.
func exprValue(old gjson.Result, expr string) []byte {
	if !old.IsArray() {
		return encodeString(expr)
	}
	lines := strings.Split(expr, "\n")
	raw := old.Raw
	var b bytes.Buffer
	b.WriteByte('[')
	if !strings.Contains(raw, "\n") {
		sep := ","
		if strings.Contains(raw, ", ") {
			sep = ", "
		}
		for i, line := range lines {
			if i > 0 {
				b.WriteString(sep)
			}
			b.Write(encodeString(line))
		}
		b.WriteByte(']')
		return b.Bytes()
	}

	nl := "\n"
	if strings.Contains(raw, "\r\n") {
		nl = "\r\n"
	}
	elemIndent, closeIndent := arrayIndent(raw)
	b.WriteString(nl)
	for i, line := range lines {
		b.WriteString(elemIndent)
		b.Write(encodeString(line))
		if i < len(lines)-1 {
			b.WriteByte(',')
		}
		b.WriteString(nl)
	}
	b.WriteString(closeIndent)
	b.WriteByte(']')
	return b.Bytes()
}

// arrayIndent returns the indentation of the first element
// and of the closing bracket of the multi-line array raw.
func arrayIndent(raw string) (elem, closing string) {
	first := raw[strings.IndexByte(raw, '\n')+1:]
	elem = first[:len(first)-len(strings.TrimLeft(first, " \t"))]
	last := raw[strings.LastIndexByte(raw, '\n')+1:]
	closing = last[:len(last)-len(strings.TrimLeft(last, " \t"))]
	if strings.TrimSpace(first) == "]" {
		// empty array: indent elements one level past the bracket
		elem = closing + "  "
	}
	return elem, closing
}

// encodeString returns s as a JSON string without HTML escaping,
// so that text like "<Placeholder>" stays readable.
func encodeString(s string) []byte {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// unreachable: strings always encode
		panic(err)
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n"))
}
