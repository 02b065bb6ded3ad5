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
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/penny-vault/pvkpi/sqlbuilder"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

var (
	ErrInvalidFilter = errors.New("invalid filter")
)

const (
	Sector          = "sector"
	Vertical        = "vertical"
	InvestorProfile = "investor_profile"
	Tag             = "tag"
	Company         = "company"

	// computed from metric values outside of the query layer
	SizeCohort  = "size_cohort"
	MarginGroup = "margin_group"
)

// Columns maps each filterable attribute to the column it restricts
var Columns = map[string]string{
	Sector:          "company.sector",
	Vertical:        "company.vertical",
	InvestorProfile: "company.investor_profile_name",
	Tag:             "tag.name",
	Company:         "company.id",
}

// Filters holds the cleaned caller-supplied attribute filters for a report
type Filters struct {
	values map[string][]string
}

// Compose removes blank values and computed attributes from raw and
// rejects attributes that cannot be filtered on
func Compose(raw map[string][]string) (Filters, error) {
	filters := Filters{values: make(map[string][]string, len(raw))}

	for attr, vals := range raw {
		if attr == SizeCohort || attr == MarginGroup {
			continue
		}

		if _, ok := Columns[attr]; !ok {
			return Filters{}, fmt.Errorf("%w: unknown attribute %q", ErrInvalidFilter, attr)
		}

		cleaned := make([]string, 0, len(vals))
		for _, val := range vals {
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			cleaned = append(cleaned, val)
		}

		if len(cleaned) > 0 {
			filters.values[attr] = cleaned
		}
	}

	return filters, nil
}

// None is an empty filter set
func None() Filters {
	return Filters{}
}

// Values returns the cleaned values keyed by attribute
func (filters Filters) Values() map[string][]string {
	return maps.Clone(filters.values)
}

// Columns returns the cleaned values keyed by fully-qualified column
func (filters Filters) Columns() map[string][]string {
	cols := make(map[string][]string, len(filters.values))
	for attr, vals := range filters.values {
		cols[Columns[attr]] = vals
	}
	return cols
}

// Literals returns the cleaned values as quoted SQL literals. The query
// builder binds values as parameters; literals are only used when logging.
func (filters Filters) Literals() map[string][]string {
	literals := make(map[string][]string, len(filters.values))
	for attr, vals := range filters.values {
		quoted := make([]string, len(vals))
		for idx, val := range vals {
			quoted[idx] = QuoteLiteral(val)
		}
		literals[attr] = quoted
	}
	return literals
}

// HasTag reports whether the report is restricted to tagged companies
func (filters Filters) HasTag() bool {
	_, ok := filters.values[Tag]
	return ok
}

// TagJoin picks the join type for the company_tag/tag pair. An inner join
// would drop untagged companies so it is only used when filtering by tag.
func (filters Filters) TagJoin() sqlbuilder.JoinType {
	if filters.HasTag() {
		return sqlbuilder.InnerJoin
	}
	return sqlbuilder.LeftJoin
}

// Apply adds the tag joins and the attribute predicates to builder. The
// builder must already join the company table.
func (filters Filters) Apply(builder *sqlbuilder.Builder) *sqlbuilder.Builder {
	joinType := filters.TagJoin()
	builder.Join(joinType, "company_tag", "company_tag.company_id = company.id")
	builder.Join(joinType, "tag", "tag.id = company_tag.tag_id")

	conds := make(map[string]any, len(filters.values))
	for col, vals := range filters.Columns() {
		conds[col] = vals
	}

	return builder.WhereEqual(conds)
}

// Key returns a stable description of the filters
func (filters Filters) Key() string {
	attrs := maps.Keys(filters.values)
	slices.Sort(attrs)

	parts := make([]string, len(attrs))
	for idx, attr := range attrs {
		parts[idx] = fmt.Sprintf("%s=%s", attr, strings.Join(filters.values[attr], ","))
	}

	return strings.Join(parts, ";")
}

func (filters Filters) MarshalZerologObject(e *zerolog.Event) {
	for attr, vals := range filters.Literals() {
		e.Strs(attr, vals)
	}
}

// QuoteLiteral quotes val as a SQL string literal
func QuoteLiteral(val string) string {
	return "'" + strings.ReplaceAll(val, "'", "''") + "'"
}
