// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package sqlbuilder

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

var (
	ErrNoTable = errors.New("query has no table or source")
	ErrNoSet   = errors.New("update has no set conditions")
)

type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type joinClause struct {
	kind  JoinType
	table string
	on    Expr
}

// Builder accumulates the fragments of a single SELECT or UPDATE statement.
// Fragments are rendered in the order they were added; joins are never
// reordered.
type Builder struct {
	table       string
	source      *Expr
	sourceAlias string
	distinctOn  []string
	selects     []Expr
	joins       []joinClause
	where       []Expr
	groupBy     []string
	having      []Expr
	orderBy     []string
	limit       int
	offset      int
	sets        []Expr
}

// New returns an empty builder
func New() *Builder {
	return &Builder{}
}

// Table sets the table the statement reads from or updates
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// From reads from a derived table instead of a named one
func (b *Builder) From(sub Expr, alias string) *Builder {
	b.source = &sub
	b.sourceAlias = alias
	return b
}

// DistinctOn keeps only the first row of each set of rows where cols are equal
func (b *Builder) DistinctOn(cols ...string) *Builder {
	b.distinctOn = append(b.distinctOn, cols...)
	return b
}

// Select appends plain columns to the select list
func (b *Builder) Select(cols ...string) *Builder {
	for _, col := range cols {
		b.selects = append(b.selects, Raw(col))
	}
	return b
}

// SelectExpr appends an expression, optionally aliased, to the select list
func (b *Builder) SelectExpr(expr Expr, alias string) *Builder {
	if alias != "" {
		expr = Format("%s AS "+alias, expr)
	}
	b.selects = append(b.selects, expr)
	return b
}

// Join appends a join clause
func (b *Builder) Join(kind JoinType, table string, on string, args ...any) *Builder {
	b.joins = append(b.joins, joinClause{kind: kind, table: table, on: Raw(on, args...)})
	return b
}

// WhereEqual adds an equality predicate per entry; slice values become `= ANY(...)`
func (b *Builder) WhereEqual(conds map[string]any) *Builder {
	if len(conds) == 0 {
		return b
	}
	b.where = append(b.where, EqualAll(conds))
	return b
}

// Where adds an arbitrary predicate. All predicates are AND-conjoined.
func (b *Builder) Where(expr Expr) *Builder {
	if !expr.IsEmpty() {
		b.where = append(b.where, expr)
	}
	return b
}

// GroupBy appends grouping expressions
func (b *Builder) GroupBy(cols ...string) *Builder {
	b.groupBy = append(b.groupBy, cols...)
	return b
}

// Having adds a group predicate. Multiple calls are AND-conjoined.
func (b *Builder) Having(expr Expr) *Builder {
	if !expr.IsEmpty() {
		b.having = append(b.having, expr)
	}
	return b
}

// OrderBy appends sort keys, all in the same direction
func (b *Builder) OrderBy(dir Direction, cols ...string) *Builder {
	for _, col := range cols {
		b.orderBy = append(b.orderBy, fmt.Sprintf("%s %s", col, dir))
	}
	return b
}

// Limit sets the maximum number of rows; zero means no limit
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset sets the number of rows to skip
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Set adds `col = value` assignments for an UPDATE, in sorted column order
func (b *Builder) Set(values map[string]any) *Builder {
	cols := maps.Keys(values)
	slices.Sort(cols)
	for _, col := range cols {
		b.sets = append(b.sets, Raw(col+" = ?", values[col]))
	}
	return b
}

// SetExpr assigns the result of an expression (e.g. a scalar subquery) to col
func (b *Builder) SetExpr(col string, expr Expr) *Builder {
	b.sets = append(b.sets, Format(col+" = %s", expr))
	return b
}

// WhereClause returns the bare `WHERE ...` clause, or an empty expression
// when there are no predicates
func (b *Builder) WhereClause() Expr {
	if len(b.where) == 0 {
		return Expr{}
	}
	return Format("WHERE %s", Join(" AND ", b.where...))
}

// Subquery renders the SELECT statement with `?` placeholders so it can be
// embedded in another statement
func (b *Builder) Subquery() (Expr, error) {
	parts := make([]Expr, 0, 10)

	selectList := Raw("*")
	if len(b.selects) > 0 {
		selectList = Join(", ", b.selects...)
	}

	if len(b.distinctOn) > 0 {
		parts = append(parts, Format("SELECT DISTINCT ON ("+strings.Join(b.distinctOn, ", ")+") %s", selectList))
	} else {
		parts = append(parts, Format("SELECT %s", selectList))
	}

	switch {
	case b.source != nil:
		parts = append(parts, Format("FROM (%s) AS "+b.sourceAlias, *b.source))
	case b.table != "":
		parts = append(parts, Raw("FROM "+b.table))
	default:
		return Expr{}, ErrNoTable
	}

	for _, jc := range b.joins {
		parts = append(parts, Format(fmt.Sprintf("%s %s ON %%s", jc.kind, jc.table), jc.on))
	}

	parts = append(parts, b.WhereClause())

	if len(b.groupBy) > 0 {
		parts = append(parts, Raw("GROUP BY "+strings.Join(b.groupBy, ", ")))
	}

	if len(b.having) > 0 {
		parts = append(parts, Format("HAVING %s", And(b.having...)))
	}

	if len(b.orderBy) > 0 {
		parts = append(parts, Raw("ORDER BY "+strings.Join(b.orderBy, ", ")))
	}

	if b.limit > 0 {
		parts = append(parts, Raw("LIMIT ?", b.limit))
	}

	if b.offset > 0 {
		parts = append(parts, Raw("OFFSET ?", b.offset))
	}

	return Join(" ", parts...), nil
}

// Build renders the SELECT statement
func (b *Builder) Build() (Query, error) {
	expr, err := b.Subquery()
	if err != nil {
		return Query{}, err
	}
	return NewQuery(expr), nil
}

// BuildUpdate renders an UPDATE statement from the table, set list and predicates
func (b *Builder) BuildUpdate() (Query, error) {
	if b.table == "" {
		return Query{}, ErrNoTable
	}

	if len(b.sets) == 0 {
		return Query{}, ErrNoSet
	}

	expr := Join(" ",
		Raw("UPDATE "+b.table),
		Format("SET %s", Join(", ", b.sets...)),
		b.WhereClause(),
	)

	return NewQuery(expr), nil
}
