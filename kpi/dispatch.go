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
	"github.com/rs/zerolog/log"
)

// ReportType selects how quarterly reports aggregate periods
type ReportType string

const (
	// SingleQuarter reports the value of one quarter
	SingleQuarter ReportType = ""

	// YearToDateReport sums every quarter from Q1 through the requested one
	YearToDateReport ReportType = "year_to_date"
)

// ParseReportType accepts "", "quarter" and "year_to_date"
func ParseReportType(s string) (ReportType, error) {
	switch s {
	case "", "quarter":
		return SingleQuarter, nil
	case string(YearToDateReport):
		return YearToDateReport, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidReportType, s)
	}
}

// Window returns the completeness window for quarter under this report type
func (reportType ReportType) Window(quarter string) (Window, error) {
	switch reportType {
	case SingleQuarter:
		return Quarter(quarter)
	case YearToDateReport:
		return YearToDate(quarter)
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidReportType, string(reportType))
	}
}

// Query renders the SQL a report of this definition runs
func (definition Definition) Query(scope Scope, filters filter.Filters) (sqlbuilder.Query, error) {
	var (
		builder *sqlbuilder.Builder
		err     error
	)

	switch definition.Kind {
	case KindBase:
		builder, err = baseMetricQuery(definition.Metric, definition.Scenario, scope, filters)
	case KindRatio, KindDifference, KindPercentOfRevenue, KindScenarioComparison:
		builder, err = calculatedMetricQuery(definition.Calculation, scope, filters)
	default:
		err = fmt.Errorf("%w: %s has unsupported kind %s", ErrMetricNotFound, definition.Key, definition.Kind)
	}

	if err != nil {
		return sqlbuilder.Query{}, err
	}

	return builder.Build()
}

func (engine *Engine) run(ctx context.Context, definition Definition, scope Scope, filters filter.Filters) ([]data.MetricRecord, error) {
	switch definition.Kind {
	case KindBase:
		return collapse(engine.baseMetric(ctx, definition.Metric, definition.Scenario, scope, filters)), nil
	case KindRatio, KindDifference, KindPercentOfRevenue, KindScenarioComparison:
		return collapse(engine.calculatedMetric(ctx, definition.Calculation, scope, filters)), nil
	default:
		return nil, fmt.Errorf("%w: %s has unsupported kind %s", ErrMetricNotFound, definition.Key, definition.Kind)
	}
}

// MetricRecords reports the catalog metric named key, e.g. actuals_revenue or
// gross_margin, for full years. An unknown key returns ErrMetricNotFound;
// query failures yield an empty report.
func (engine *Engine) MetricRecords(ctx context.Context, key string, filters filter.Filters) ([]data.MetricRecord, error) {
	definition, err := LookupByMetric(key)
	if err != nil {
		log.Warn().Str("Key", key).Msg("metric not found in catalog")
		return nil, err
	}

	return engine.run(ctx, definition, FullYearScope(), filters)
}

// MetricRecordsByQuarters reports a metric for one quarter or year to date.
// metric is either a calculated catalog key (gross_margin) or a base metric
// name that is combined with scenario (Revenue, Actuals). years restricts the
// scenario years; none means all.
func (engine *Engine) MetricRecordsByQuarters(ctx context.Context, reportType ReportType, metric string, scenario data.ScenarioType, years []int, period string, filters filter.Filters) ([]data.MetricRecord, error) {
	window, err := reportType.Window(period)
	if err != nil {
		return nil, err
	}

	definition, err := LookupQuarters(metric)
	if err != nil {
		if scenario == "" {
			return nil, fmt.Errorf("%w: a scenario is required for %q", ErrInvalidScenario, metric)
		}

		definition, err = LookupQuarters(QuartersKey(scenario, metric))
		if err != nil {
			log.Warn().Str("Metric", metric).Str("Scenario", string(scenario)).Msg("metric not found in catalog")
			return nil, err
		}
	}

	return engine.run(ctx, definition, Scope{Window: window, Years: years}, filters)
}
