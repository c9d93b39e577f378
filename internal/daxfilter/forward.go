// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daxfilter

import "regexp"

// rsPattern matches RSCustomDaxFilter(@param, cond, [table].[column], dtype).
// The param, condition and data type are runs of characters up to the
// next delimiter and are trimmed after matching. The table and column
// names are kept exactly as written between the brackets.
var rsPattern = regexp.MustCompile(
	`RSCustomDaxFilter\s*\(\s*@([^,]+)\s*,\s*([^,]+)\s*,\s*` +
		`\[([^\]]+)\]\.\[([^\]]+)\]\s*,\s*([^)]+)\s*\)`)

const (
	rsParam = 1 + iota
	rsCond
	rsTable
	rsColumn
	rsType
)

func parseRS(text string, m []int) Capture {
	c := Capture{
		Start:     m[0],
		End:       m[1],
		Param:     group(text, m, rsParam),
		Condition: group(text, m, rsCond),
		Table:     rawGroup(text, m, rsTable),
		Column:    rawGroup(text, m, rsColumn),
		DataType:  group(text, m, rsType),
	}
	c.Operator, _ = Operator(c.Condition)
	return c
}
