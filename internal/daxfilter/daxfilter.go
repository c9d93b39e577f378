// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daxfilter rewrites DAX filter expressions between two
// textual conventions: the report-builder function call form
//
//	RSCustomDaxFilter(@Param, EqualToCondition, [Table].[Column], String)
//
// and the native DAX form annotated with the parameter name
//
//	FILTER( ALL('Table'), 'Table'[Column] = "<Placeholder>") /* Param: Param */
//
// Rewriting to the FILTER form ([ToFilter], [Forward]) drops the data type,
// so rewriting back ([ToRS], [Reverse]) always uses [DefaultDataType].
//
// Text around a recognized call is copied unchanged, and a call that does not
// match the expected shape exactly is left alone rather than partially rewritten.
package daxfilter

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
)

const (
	// Placeholder stands in for the comparison value in the FILTER form.
	Placeholder = "<Placeholder>"

	// UnknownCondition takes the place of the operator when a
	// condition keyword is not recognized, flagging the output for review.
	UnknownCondition = "//UnknownCondition"

	// DefaultDataType is the data type written by [ToRS] rewrites.
	DefaultDataType = "String"
)

// A Direction selects which form is rewritten into which.
type Direction int

const (
	ToFilter Direction = iota // RSCustomDaxFilter(...) to FILTER(...)
	ToRS                      // FILTER(...) to RSCustomDaxFilter(...)
)

// ParseDirection parses "forward" (or "to-filter") and "reverse" (or "to-rs").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "forward", "to-filter":
		return ToFilter, nil
	case "reverse", "to-rs":
		return ToRS, nil
	}
	return 0, fmt.Errorf("daxfilter: unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case ToFilter:
		return "forward"
	case ToRS:
		return "reverse"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// A Capture is one recognized filter call in a source text.
type Capture struct {
	Start, End int // byte offsets of the call in the source text

	Param     string // parameter name, without the leading @
	Condition string // condition keyword; "" if the operator has none
	Operator  string // DAX comparison operator; "" if the condition is unknown
	Table     string
	Table2    string // table quoted in the column reference (FILTER form only)
	Column    string
	DataType  string // data type token (RSCustomDaxFilter form only)
}

// FilterForm returns c written in the FILTER form.
// If c has no operator, the operator position holds [UnknownCondition].
func (c *Capture) FilterForm() string {
	op := c.Operator
	if op == "" {
		op = UnknownCondition
	}
	table := "'" + c.Table + "'"
	return fmt.Sprintf("FILTER( ALL(%s), %s[%s] %s %q) /* Param: %s */", table, table, c.Column, op, Placeholder, c.Param)
}

// RSForm returns c written as an RSCustomDaxFilter call.
// An empty data type is written as [DefaultDataType].
func (c *Capture) RSForm() string {
	cond := c.Condition
	if cond == "" {
		cond = "UnknownCondition"
	}
	dtype := c.DataType
	if dtype == "" {
		dtype = DefaultDataType
	}
	return fmt.Sprintf("RSCustomDaxFilter(@%s, %s, [%s].[%s], %s)", c.Param, cond, c.Table, c.Column, dtype)
}

// A Result is the outcome of rewriting one text.
type Result struct {
	Text     string // rewritten text; the input itself if nothing matched
	Changed  bool   // Text differs from the input
	Rewrites int    // number of calls rewritten
	Unknown  int    // number of calls written with UnknownCondition
}

// Matches returns the calls in text that d would rewrite, in order.
func (d Direction) Matches(text string) iter.Seq[Capture] {
	return func(yield func(Capture) bool) {
		var re *regexp.Regexp
		var parse func(string, []int) Capture
		switch d {
		case ToFilter:
			re, parse = rsPattern, parseRS
		case ToRS:
			re, parse = filterPattern, parseFilter
		default:
			return
		}
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if !yield(parse(text, m)) {
				return
			}
		}
	}
}

// Rewrite rewrites every call in text recognized by d.
func (d Direction) Rewrite(text string) Result {
	res := Result{Text: text}
	var b strings.Builder
	last := 0
	for c := range d.Matches(text) {
		b.WriteString(text[last:c.Start])
		if d == ToFilter {
			if c.Operator == "" {
				res.Unknown++
			}
			b.WriteString(c.FilterForm())
		} else {
			b.WriteString(c.RSForm())
		}
		last = c.End
		res.Rewrites++
	}
	if res.Rewrites == 0 {
		return res
	}
	b.WriteString(text[last:])
	res.Text = b.String()
	res.Changed = res.Text != text
	return res
}

// Forward rewrites every RSCustomDaxFilter call in text into the FILTER form.
// It returns the new text and whether it differs from text.
func Forward(text string) (string, bool) {
	r := ToFilter.Rewrite(text)
	return r.Text, r.Changed
}

// Reverse rewrites every annotated FILTER expression in text into an
// RSCustomDaxFilter call.
// It returns the new text and whether it differs from text.
func Reverse(text string) (string, bool) {
	r := ToRS.Rewrite(text)
	return r.Text, r.Changed
}

// group returns the trimmed text of submatch i of m.
func group(text string, m []int, i int) string {
	return strings.TrimSpace(rawGroup(text, m, i))
}

// rawGroup returns the text of submatch i of m.
func rawGroup(text string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}
