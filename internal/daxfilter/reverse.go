// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daxfilter

import "regexp"

// filterPattern matches the FILTER form written by [ToFilter]:
//
//	FILTER( ALL('table'), 'table2'[column] op "<Placeholder>") /* Param: param */
//
// The operator alternation lists <>, >= and <= before > and <
// so that a two-character operator is never split.
// The two table names are captured independently and are not required to match.
var filterPattern = regexp.MustCompile(
	`FILTER\s*\(\s*ALL\('([^']+)'\)\s*,\s*'([^']+)'\[([^\]]+)\]\s*` +
		`(<>|>=|<=|=|>|<)\s*"<Placeholder>"\s*\)\s*/\*\s*Param:\s*([^*]+)\*/`)

const (
	filterTable = 1 + iota
	filterTable2
	filterColumn
	filterOp
	filterParam
)

func parseFilter(text string, m []int) Capture {
	c := Capture{
		Start:    m[0],
		End:      m[1],
		Table:    group(text, m, filterTable),
		Table2:   group(text, m, filterTable2),
		Column:   group(text, m, filterColumn),
		Operator: group(text, m, filterOp),
		Param:    group(text, m, filterParam),
	}
	c.Condition, _ = Condition(c.Operator)
	return c
}
