// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daxfilter

import "strings"

// conditions is the Condition<->Operator table shared by both directions.
// Each operator and each condition keyword appears exactly once.
var conditions = [...]struct {
	op   string
	cond string
}{
	{"=", "EqualToCondition"},
	{"<>", "NotEqualToCondition"},
	{">", "GreaterThanCondition"},
	{">=", "GreaterThanOrEqualToCondition"},
	{"<", "LessThanCondition"},
	{"<=", "LessThanOrEqualToCondition"},
}

// Operator returns the DAX comparison operator for the named condition keyword,
// such as "<=" for "LessThanOrEqualToCondition".
// The keyword is matched ignoring ASCII case and surrounding spaces.
// If the keyword is not one of the six known conditions,
// Operator returns "", false.
func Operator(cond string) (op string, ok bool) {
	cond = strings.TrimSpace(cond)
	for _, c := range conditions {
		if strings.EqualFold(c.cond, cond) {
			return c.op, true
		}
	}
	return "", false
}

// Condition returns the condition keyword for the DAX comparison operator op.
// If op is not one of =, <>, >, >=, <, <=, Condition returns "", false.
func Condition(op string) (cond string, ok bool) {
	op = strings.TrimSpace(op)
	for _, c := range conditions {
		if c.op == op {
			return c.cond, true
		}
	}
	return "", false
}

// Operators returns the six comparison operators in table order.
func Operators() []string {
	ops := make([]string, len(conditions))
	for i, c := range conditions {
		ops[i] = c.op
	}
	return ops
}
