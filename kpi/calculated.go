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
	"context"
	"fmt"
	"regexp"

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/filter"
	"github.com/penny-vault/pvkpi/sqlbuilder"
)

// Aggregation folds the period rows of a group into one figure. Flows such as
// revenue are summed, stocks such as headcount are averaged.
type Aggregation int

const (
	Sum Aggregation = iota
	Average
)

func (aggregation Aggregation) function() string {
	if aggregation == Average {
		return "AVG"
	}
	return "SUM"
}

// Term is a metric looked up for the same company and period as the anchor
// row. An empty Scenario means the anchor's own scenario; otherwise the
// scenario of that type for the same year is used.
type Term struct {
	Alias       string
	Metric      string
	Scenario    data.ScenarioType
	Aggregation Aggregation
}

// Columns hands a formula the aggregated SQL of the anchor and its terms
type Columns struct {
	calculation *Calculation
}

// Anchor is the aggregated anchor metric
func (columns Columns) Anchor() sqlbuilder.Expr {
	return sqlbuilder.Raw(columns.calculation.AnchorAggregation.function() + "(value)")
}

// Term is the aggregated term; it is null unless the term was found for
// every period row of the group
func (columns Columns) Term(alias string) sqlbuilder.Expr {
	for _, term := range columns.calculation.Terms {
		if term.Alias == alias {
			return sqlbuilder.Raw(fmt.Sprintf("CASE WHEN COUNT(%[1]s) = COUNT(*) THEN %[2]s(%[1]s) END", alias, term.Aggregation.function()))
		}
	}
	return sqlbuilder.Raw("NULL")
}

// Divisor guards a denominator so a zero yields null instead of an error
func Divisor(expr sqlbuilder.Expr) sqlbuilder.Expr {
	return sqlbuilder.Format("NULLIF(%s, 0)", expr)
}

// Calculation describes a metric derived from an anchor metric and any
// number of correlated terms
type Calculation struct {
	// Name labels the metric column of the result rows
	Name string

	// Anchor is the metric whose period rows drive the report
	Anchor            string
	Scenario          data.ScenarioType
	AnchorAggregation Aggregation
	Terms             []Term

	Formula func(Columns) sqlbuilder.Expr
}

var termAlias = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var reservedAliases = map[string]bool{
	"company_id":  true,
	"name":        true,
	"scenario":    true,
	"metric":      true,
	"year":        true,
	"period_name": true,
	"period":      true,
	"value":       true,
}

// Validate checks the calculation can be rendered
func (calculation *Calculation) Validate() error {
	if calculation.Anchor == "" {
		return fmt.Errorf("%w: %q has no anchor metric", ErrInvalidCalculation, calculation.Name)
	}

	if calculation.Scenario == "" {
		return fmt.Errorf("%w: %q has no scenario", ErrInvalidCalculation, calculation.Name)
	}

	if calculation.Formula == nil {
		return fmt.Errorf("%w: %q has no formula", ErrInvalidCalculation, calculation.Name)
	}

	seen := make(map[string]bool, len(calculation.Terms))
	for _, term := range calculation.Terms {
		if !termAlias.MatchString(term.Alias) || reservedAliases[term.Alias] || seen[term.Alias] {
			return fmt.Errorf("%w: %q has a bad term alias %q", ErrInvalidCalculation, calculation.Name, term.Alias)
		}
		seen[term.Alias] = true
	}

	return nil
}

// termQuery is a scalar subquery returning the term's value for the company,
// period and scenario of the enclosing anchor row
func termQuery(term Term) (sqlbuilder.Expr, error) {
	builder := sqlbuilder.New().
		Table("metric AS sub_metric").
		Select("sub_metric.value").
		Join(sqlbuilder.InnerJoin, "scenario_metric AS sub_sm", "sub_sm.metric_id = sub_metric.id").
		Join(sqlbuilder.InnerJoin, "financial_scenario AS sub_scenario", "sub_scenario.id = sub_sm.scenario_id").
		Join(sqlbuilder.InnerJoin, "time_period AS sub_period", "sub_period.id = sub_metric.period_id").
		Where(sqlbuilder.Eq("sub_metric.name", term.Metric)).
		Where(sqlbuilder.Raw("sub_scenario.company_id = company.id")).
		Where(sqlbuilder.Raw("sub_period.period = time_period.period"))

	if term.Scenario == "" {
		builder.Where(sqlbuilder.Raw("sub_scenario.name = financial_scenario.name"))
	} else {
		builder.
			Where(sqlbuilder.Eq("sub_scenario.type", string(term.Scenario))).
			Where(sqlbuilder.Raw(scenarioYear("sub_scenario") + " = " + scenarioYear("financial_scenario")))
	}

	return builder.Limit(1).Subquery()
}

func calculatedMetricQuery(calculation Calculation, scope Scope, filters filter.Filters) (*sqlbuilder.Builder, error) {
	if err := calculation.Validate(); err != nil {
		return nil, err
	}

	rows := periodRows(calculation.Anchor, calculation.Scenario, scope, filters)
	for _, term := range calculation.Terms {
		sub, err := termQuery(term)
		if err != nil {
			return nil, err
		}
		rows.SelectExpr(sqlbuilder.Format("(%s)", sub), term.Alias)
	}

	inner, err := rows.Subquery()
	if err != nil {
		return nil, err
	}

	builder := sqlbuilder.New().
		From(inner, periodRowsAlias).
		Select("company_id", "name", "scenario").
		SelectExpr(sqlbuilder.Raw("?::text", calculation.Name), "metric").
		Select("year", "period").
		SelectExpr(calculation.Formula(Columns{calculation: &calculation}), "value").
		SelectExpr(sqlbuilder.Raw("COUNT(period_name)"), "count_periods").
		GroupBy(reportColumns...).
		Having(scope.Window.Having()).
		OrderBy(sqlbuilder.Asc, "name", "company_id", "year", "period")

	return builder, nil
}

func (engine *Engine) calculatedMetric(ctx context.Context, calculation Calculation, scope Scope, filters filter.Filters) ([]data.MetricRecord, error) {
	op := fmt.Sprintf("calculated metric %s (%s)", calculation.Name, scope.Window)

	builder, err := calculatedMetricQuery(calculation, scope, filters)
	if err != nil {
		return nil, &ExecError{Op: op, Err: err}
	}

	return engine.fetch(ctx, op, builder)
}

// CalculatedMetric reports a derived metric per company and scenario year.
// Rows whose inputs are missing or whose denominator is zero carry a null value.
func (engine *Engine) CalculatedMetric(ctx context.Context, calculation Calculation, filters filter.Filters) []data.MetricRecord {
	return collapse(engine.calculatedMetric(ctx, calculation, FullYearScope(), filters))
}

// CalculatedMetricScope reports a derived metric restricted to scope
func (engine *Engine) CalculatedMetricScope(ctx context.Context, calculation Calculation, scope Scope, filters filter.Filters) []data.MetricRecord {
	return collapse(engine.calculatedMetric(ctx, calculation, scope, filters))
}
