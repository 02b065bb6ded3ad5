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

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/filter"
	"github.com/penny-vault/pvkpi/sqlbuilder"
)

const periodRowsAlias = "period_rows"

var reportColumns = []string{"company_id", "name", "scenario", "metric", "year", "period"}

// scenarioYear extracts the year (text after the dash) from a scenario name column
func scenarioYear(table string) string {
	return fmt.Sprintf("substring(%[1]s.name from position('-' in %[1]s.name) + 1)", table)
}

func periodClass() sqlbuilder.Expr {
	return sqlbuilder.Raw("CASE WHEN time_period.period = ? THEN ? ELSE ? END", data.FullYear, data.FullYear, data.Quarters)
}

// periodRows selects one row per metric of the given name and scenario type
// within the scope. Metrics reached through more than one tag are collapsed
// by DISTINCT ON so aggregates never double count.
func periodRows(metric string, scenario data.ScenarioType, scope Scope, filters filter.Filters) *sqlbuilder.Builder {
	builder := sqlbuilder.New().
		Table("company").
		DistinctOn("metric.id").
		Select(
			"company.id AS company_id",
			"company.name AS name",
			"financial_scenario.name AS scenario",
			"metric.name AS metric",
		).
		SelectExpr(sqlbuilder.Raw(scenarioYear("financial_scenario")), "year").
		Select("time_period.period AS period_name").
		SelectExpr(periodClass(), "period").
		Select("metric.value AS value").
		Join(sqlbuilder.InnerJoin, "financial_scenario", "financial_scenario.company_id = company.id").
		Join(sqlbuilder.InnerJoin, "scenario_metric", "scenario_metric.scenario_id = financial_scenario.id").
		Join(sqlbuilder.InnerJoin, "metric", "metric.id = scenario_metric.metric_id").
		Join(sqlbuilder.InnerJoin, "time_period", "time_period.id = metric.period_id")

	filters.Apply(builder)

	builder.WhereEqual(map[string]any{
		"financial_scenario.type": string(scenario),
		"metric.name":             metric,
		"time_period.period":      scope.Window.PeriodNames(),
	})

	if len(scope.Years) > 0 {
		builder.Where(sqlbuilder.Eq(scenarioYear("financial_scenario"), scope.yearNames()))
	}

	return builder
}

// fullYearAverage annualizes quarterly rows (a year-to-date report projects
// the run rate of the quarters it has); a Full-year row is its own average.
var fullYearAverage = fmt.Sprintf("CASE WHEN period = '%s' THEN SUM(value) * 4 / COUNT(period_name) ELSE SUM(value) END", data.Quarters)

// report groups period rows into one row per company, scenario year and
// period class, keeping only the groups the window considers complete
func report(rows sqlbuilder.Expr, window Window) *sqlbuilder.Builder {
	return sqlbuilder.New().
		From(rows, periodRowsAlias).
		Select(reportColumns...).
		GroupBy(reportColumns...).
		Having(window.Having()).
		OrderBy(sqlbuilder.Asc, "name", "company_id", "year", "period")
}

func baseMetricQuery(metric string, scenario data.ScenarioType, scope Scope, filters filter.Filters) (*sqlbuilder.Builder, error) {
	rows, err := periodRows(metric, scenario, scope, filters).Subquery()
	if err != nil {
		return nil, err
	}

	return report(rows, scope.Window).
		SelectExpr(sqlbuilder.Raw("SUM(value)"), "value").
		SelectExpr(sqlbuilder.Raw("SUM(value)"), "total").
		SelectExpr(sqlbuilder.Raw("AVG(value)"), "average").
		SelectExpr(sqlbuilder.Raw("COUNT(period_name)"), "count_periods").
		SelectExpr(sqlbuilder.Raw(fullYearAverage), "full_year_average"), nil
}

func (engine *Engine) baseMetric(ctx context.Context, metric string, scenario data.ScenarioType, scope Scope, filters filter.Filters) ([]data.MetricRecord, error) {
	op := fmt.Sprintf("base metric %s/%s (%s)", scenario, metric, scope.Window)

	builder, err := baseMetricQuery(metric, scenario, scope, filters)
	if err != nil {
		return nil, &ExecError{Op: op, Err: err}
	}

	return engine.fetch(ctx, op, builder)
}

// BaseMetric reports a raw metric per company and scenario year. A year is
// reported from its Full-year row or from a complete set of four quarters;
// anything else is left out. Failures are logged and yield an empty report.
func (engine *Engine) BaseMetric(ctx context.Context, metric string, scenario data.ScenarioType, filters filter.Filters) []data.MetricRecord {
	return collapse(engine.baseMetric(ctx, metric, scenario, FullYearScope(), filters))
}

// BaseMetricScope reports a raw metric restricted to scope
func (engine *Engine) BaseMetricScope(ctx context.Context, metric string, scenario data.ScenarioType, scope Scope, filters filter.Filters) []data.MetricRecord {
	return collapse(engine.baseMetric(ctx, metric, scenario, scope, filters))
}
