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
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

// Expr is a SQL fragment. Values are never part of SQL; each `?` in SQL is
// bound to the next element of Args.
type Expr struct {
	SQL  string
	Args []any
}

// Raw creates an expression from a fragment and its bind arguments
func Raw(sql string, args ...any) Expr {
	return Expr{SQL: sql, Args: args}
}

// IsEmpty returns true if the expression has no SQL text
func (e Expr) IsEmpty() bool {
	return strings.TrimSpace(e.SQL) == ""
}

// Format substitutes the SQL of each expression for the `%s` verbs in format.
// Verbs are consumed in order so arguments are concatenated in the same order.
func Format(format string, exprs ...Expr) Expr {
	sqls := make([]any, len(exprs))
	args := make([]any, 0, len(exprs))
	for idx, expr := range exprs {
		sqls[idx] = expr.SQL
		args = append(args, expr.Args...)
	}

	return Expr{SQL: fmt.Sprintf(format, sqls...), Args: args}
}

// Join concatenates expressions with sep, skipping empty ones
func Join(sep string, exprs ...Expr) Expr {
	parts := make([]string, 0, len(exprs))
	args := make([]any, 0, len(exprs))
	for _, expr := range exprs {
		if expr.IsEmpty() {
			continue
		}
		parts = append(parts, expr.SQL)
		args = append(args, expr.Args...)
	}

	return Expr{SQL: strings.Join(parts, sep), Args: args}
}

// And conjoins the expressions, parenthesizing each operand when there is more than one
func And(exprs ...Expr) Expr {
	return combine(" AND ", exprs)
}

// Or disjoins the expressions, parenthesizing each operand when there is more than one
func Or(exprs ...Expr) Expr {
	return combine(" OR ", exprs)
}

func combine(op string, exprs []Expr) Expr {
	nonEmpty := make([]Expr, 0, len(exprs))
	for _, expr := range exprs {
		if !expr.IsEmpty() {
			nonEmpty = append(nonEmpty, expr)
		}
	}

	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}

	wrapped := make([]Expr, len(nonEmpty))
	for idx, expr := range nonEmpty {
		wrapped[idx] = Format("(%s)", expr)
	}

	return Join(op, wrapped...)
}

// Eq renders `col = ?` for scalars and `col = ANY(?)` for slices
func Eq(col string, val any) Expr {
	if isList(val) {
		return Raw(col+" = ANY(?)", val)
	}
	return Raw(col+" = ?", val)
}

// EqualAll renders an AND-conjoined equality predicate for every entry of
// conds. Columns are emitted in sorted order so the SQL text is stable.
func EqualAll(conds map[string]any) Expr {
	cols := maps.Keys(conds)
	slices.Sort(cols)

	exprs := make([]Expr, 0, len(cols))
	for _, col := range cols {
		exprs = append(exprs, Eq(col, conds[col]))
	}

	return Join(" AND ", exprs...)
}

func isList(val any) bool {
	if val == nil {
		return false
	}

	kind := reflect.TypeOf(val).Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return false
	}

	// []byte is a scalar bytea value
	_, isBytes := val.([]byte)
	return !isBytes
}

// Rebind converts `?` placeholders into PostgreSQL's positional `$n` form.
// Question marks inside quoted literals or identifiers are left untouched.
func Rebind(sql string) string {
	var (
		builder  strings.Builder
		inSingle bool
		inDouble bool
		n        int
	)

	builder.Grow(len(sql) + 8)

	for _, ch := range sql {
		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '?' && !inSingle && !inDouble:
			n++
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(n))
			continue
		}
		builder.WriteRune(ch)
	}

	return builder.String()
}
