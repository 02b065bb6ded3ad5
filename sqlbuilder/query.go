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
	"github.com/rs/zerolog"
)

// Query is a finished statement with positional placeholders
type Query struct {
	sql  string
	args []any
}

// NewQuery numbers the placeholders of expr
func NewQuery(expr Expr) Query {
	return Query{
		sql:  Rebind(expr.SQL),
		args: expr.Args,
	}
}

// SQL returns the statement text
func (q Query) SQL() string {
	return q.sql
}

// Args returns the bind arguments in placeholder order
func (q Query) Args() []any {
	return q.args
}

func (q Query) String() string {
	return q.sql
}

func (q Query) MarshalZerologObject(e *zerolog.Event) {
	e.Str("SQL", q.sql)
	e.Interface("Args", q.args)
}
