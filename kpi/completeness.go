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
package kpi

import (
	"fmt"

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/sqlbuilder"
)

type windowKind int

const (
	fullYearWindow windowKind = iota
	quarterWindow
	yearToDateWindow
)

// Window selects the periods that make up a reported figure and decides when
// a (company, scenario, period class) group is complete enough to report.
type Window struct {
	kind    windowKind
	quarter string
}

// FullYear is complete with exactly one Full-year row or exactly four
// distinct quarter rows
func FullYear() Window {
	return Window{kind: fullYearWindow}
}

// Quarter is complete when the requested quarter is present
func Quarter(quarter string) (Window, error) {
	if data.QuarterIndex(quarter) < 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, quarter)
	}
	return Window{kind: quarterWindow, quarter: quarter}, nil
}

// YearToDate is complete when every quarter from Q1 through the requested
// quarter is present. A gap (e.g. Q1 and Q3 without Q2) is incomplete.
func YearToDate(quarter string) (Window, error) {
	if data.QuarterIndex(quarter) < 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, quarter)
	}
	return Window{kind: yearToDateWindow, quarter: quarter}, nil
}

// PeriodNames restricts time_period.period for the window
func (window Window) PeriodNames() []string {
	switch window.kind {
	case quarterWindow:
		return []string{window.quarter}
	case yearToDateWindow:
		return append([]string{}, data.QuarterNames[:window.RequiredQuarters()]...)
	default:
		return append([]string{}, data.PeriodNames...)
	}
}

// RequiredQuarters is the number of distinct quarter rows a Quarters group needs
func (window Window) RequiredQuarters() int {
	switch window.kind {
	case quarterWindow:
		return 1
	case yearToDateWindow:
		return data.QuarterIndex(window.quarter) + 1
	default:
		return len(data.QuarterNames)
	}
}

// Having is the group predicate applied over period rows. It expects the
// grouped columns `period` (the period class) and `period_name`.
func (window Window) Having() sqlbuilder.Expr {
	required := window.RequiredQuarters()
	quarters := sqlbuilder.And(
		sqlbuilder.Raw("COUNT(period_name) = ?", required),
		sqlbuilder.Raw("COUNT(DISTINCT period_name) = ?", required),
		sqlbuilder.Raw("period = ?", data.Quarters),
	)

	if window.kind != fullYearWindow {
		return quarters
	}

	fullYear := sqlbuilder.And(
		sqlbuilder.Raw("COUNT(period_name) = ?", 1),
		sqlbuilder.Raw("period = ?", data.FullYear),
	)

	return sqlbuilder.Or(fullYear, quarters)
}

func (window Window) String() string {
	switch window.kind {
	case quarterWindow:
		return window.quarter
	case yearToDateWindow:
		return "YTD " + window.quarter
	default:
		return data.FullYear
	}
}
