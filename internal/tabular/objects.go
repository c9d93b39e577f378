// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tabular

import (
	"fmt"
	"iter"
	"strings"

	"github.com/tidwall/gjson"
)

// A Kind identifies the kind of a model object.
type Kind string

const (
	KindTable           Kind = "table"
	KindColumn          Kind = "column"
	KindMeasure         Kind = "measure"
	KindPartition       Kind = "partition"
	KindCalculationItem Kind = "calculationItem"
	KindHierarchy       Kind = "hierarchy"
	KindExpression      Kind = "expression"
	KindRole            Kind = "role"
	KindTablePermission Kind = "tablePermission"
)

var kinds = []Kind{
	KindTable, KindColumn, KindMeasure, KindPartition, KindCalculationItem,
	KindHierarchy, KindExpression, KindRole, KindTablePermission,
}

// ParseKind returns the Kind named s, ignoring case.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("tabular: unknown object kind %q", s)
}

// An Object is a named part of a model.
type Object interface {
	Kind() Kind
	Name() string // display name
	Path() string // slash-separated location, such as "Sales/measures/Total"
}

// An Expressioner is an Object with a DAX (or M) expression
// that can be read and replaced.
type Expressioner interface {
	Object

	// Expression returns the object's expression.
	// It returns "", false if the object has no expression,
	// such as a column loaded from a data source.
	Expression() (string, bool)

	// SetExpression replaces the object's expression.
	SetExpression(expr string)
}

var (
	_ Expressioner = (*Column)(nil)
	_ Expressioner = (*Measure)(nil)
	_ Expressioner = (*Partition)(nil)
	_ Expressioner = (*CalculationItem)(nil)
	_ Expressioner = (*NamedExpression)(nil)
)

type base struct {
	kind Kind
	name string
	path string
	doc  *Document
	at   string // gjson path of the object in doc
}

func (b *base) Kind() Kind     { return b.kind }
func (b *base) Name() string   { return b.name }
func (b *base) Path() string   { return b.path }
func (b *base) String() string { return string(b.kind) + " " + b.path }

// expr returns the expression in member key of the object.
func (b *base) expr(key string) (string, bool) {
	return readExpr(b.doc.get(join(b.at, key)))
}

// setExpr stores expr in member key of the object, keeping the
// array-of-lines form if the member already used it.
func (b *base) setExpr(key, expr string) {
	path := join(b.at, key)
	b.doc.data = setRaw(b.doc.data, path, exprValue(b.doc.get(path), expr))
}

// A Table is a model table.
type Table struct{ base }

// A Column is a table column. Only calculated columns have an expression.
type Column struct{ base }

// A Measure is a table measure.
type Measure struct{ base }

// A Partition is a table partition. Calculated and M partitions
// keep their expression in the partition source.
type Partition struct{ base }

// A CalculationItem is an item of a calculation group table.
type CalculationItem struct{ base }

// A Hierarchy is a user hierarchy of a table.
type Hierarchy struct{ base }

// A NamedExpression is a shared model expression, such as an M parameter.
type NamedExpression struct{ base }

// A Role is a security role.
type Role struct{ base }

// A TablePermission is the row filter of a role for one table.
// Its DAX lives in filterExpression, which is not an Expression,
// so TablePermission does not implement [Expressioner].
type TablePermission struct{ base }

func (c *Column) Expression() (string, bool)          { return c.expr("expression") }
func (c *Column) SetExpression(expr string)           { c.setExpr("expression", expr) }
func (m *Measure) Expression() (string, bool)         { return m.expr("expression") }
func (m *Measure) SetExpression(expr string)          { m.setExpr("expression", expr) }
func (c *CalculationItem) Expression() (string, bool) { return c.expr("expression") }
func (c *CalculationItem) SetExpression(expr string)  { c.setExpr("expression", expr) }
func (e *NamedExpression) Expression() (string, bool) { return e.expr("expression") }
func (e *NamedExpression) SetExpression(expr string)  { e.setExpr("expression", expr) }

// Expression returns the expression of the partition source.
func (p *Partition) Expression() (string, bool) {
	if !p.doc.get(join(p.at, "source")).IsObject() {
		return "", false
	}
	return p.expr("source.expression")
}

// SetExpression sets the expression of the partition source,
// creating the source if needed.
func (p *Partition) SetExpression(expr string) { p.setExpr("source.expression", expr) }

// Objects returns the objects of the model in document order.
// A table is followed by its own objects.
func (d *Document) Objects() iter.Seq[Object] {
	return func(yield func(Object) bool) {
		model := gjson.ParseBytes(d.data)
		if d.model != "" {
			model = model.Get(d.model)
		}
		model.ForEach(func(key, val gjson.Result) bool {
			at := join(d.model, key.Str)
			switch key.Str {
			case "tables":
				return eachElem(val, at, func(t gjson.Result, at string) bool { return d.yieldTable(t, at, yield) })
			case "expressions":
				return eachElem(val, at, func(e gjson.Result, at string) bool {
					name := e.Get("name").Str
					return yield(&NamedExpression{base{KindExpression, name, "expressions/" + name, d, at}})
				})
			case "roles":
				return eachElem(val, at, func(r gjson.Result, at string) bool { return d.yieldRole(r, at, yield) })
			}
			return true
		})
	}
}

// eachElem calls f for each object element of the array v at path at,
// stopping early if f returns false.
func eachElem(v gjson.Result, at string, f func(e gjson.Result, at string) bool) bool {
	if !v.IsArray() {
		return true
	}
	ok := true
	i := 0
	v.ForEach(func(_, e gjson.Result) bool {
		defer func() { i++ }()
		if !e.IsObject() {
			return true
		}
		ok = f(e, index(at, i))
		return ok
	})
	return ok
}

func (d *Document) yieldTable(t gjson.Result, at string, yield func(Object) bool) bool {
	table := t.Get("name").Str
	if !yield(&Table{base{KindTable, table, table, d, at}}) {
		return false
	}
	child := func(kind Kind, group string, mk func(base) Object) func(gjson.Result, string) bool {
		return func(n gjson.Result, at string) bool {
			name := n.Get("name").Str
			return yield(mk(base{kind, name, table + "/" + group + "/" + name, d, at}))
		}
	}
	ok := true
	t.ForEach(func(key, val gjson.Result) bool {
		at := join(at, key.Str)
		switch key.Str {
		case "columns":
			ok = eachElem(val, at, child(KindColumn, key.Str, func(b base) Object { return &Column{b} }))
		case "measures":
			ok = eachElem(val, at, child(KindMeasure, key.Str, func(b base) Object { return &Measure{b} }))
		case "partitions":
			ok = eachElem(val, at, child(KindPartition, key.Str, func(b base) Object { return &Partition{b} }))
		case "hierarchies":
			ok = eachElem(val, at, child(KindHierarchy, key.Str, func(b base) Object { return &Hierarchy{b} }))
		case "calculationGroup":
			ok = eachElem(val.Get("calculationItems"), join(at, "calculationItems"),
				child(KindCalculationItem, "calculationItems", func(b base) Object { return &CalculationItem{b} }))
		}
		return ok
	})
	return ok
}

func (d *Document) yieldRole(r gjson.Result, at string, yield func(Object) bool) bool {
	role := r.Get("name").Str
	path := "roles/" + role
	if !yield(&Role{base{KindRole, role, path, d, at}}) {
		return false
	}
	return eachElem(r.Get("tablePermissions"), join(at, "tablePermissions"), func(p gjson.Result, at string) bool {
		name := p.Get("name").Str
		return yield(&TablePermission{base{KindTablePermission, name, path + "/tablePermissions/" + name, d, at}})
	})
}

// Lookup returns the object with the given path.
func (d *Document) Lookup(path string) (Object, bool) {
	for obj := range d.Objects() {
		if obj.Path() == path {
			return obj, true
		}
	}
	return nil, false
}
