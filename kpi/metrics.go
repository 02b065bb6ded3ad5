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

func percentOf(numerator, denominator sqlbuilder.Expr) sqlbuilder.Expr {
	return sqlbuilder.Format("(%s / %s) * 100", numerator, Divisor(denominator))
}

func ratioOf(numerator, denominator sqlbuilder.Expr) sqlbuilder.Expr {
	return sqlbuilder.Format("%s / %s", numerator, Divisor(denominator))
}

// GrossProfitCalculation is revenue less cost of goods
func GrossProfitCalculation(scenario data.ScenarioType) Calculation {
	return Calculation{
		Name:     "Gross profit",
		Anchor:   data.Revenue,
		Scenario: scenario,
		Terms:    []Term{{Alias: "cost_of_goods", Metric: data.CostOfGoods}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return sqlbuilder.Format("%s - %s", columns.Anchor(), columns.Term("cost_of_goods"))
		},
	}
}

// GrossMarginCalculation is the share of revenue left after cost of goods
func GrossMarginCalculation() Calculation {
	return Calculation{
		Name:     "Gross margin",
		Anchor:   data.CostOfGoods,
		Scenario: data.Actuals,
		Terms:    []Term{{Alias: "revenue", Metric: data.Revenue}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return sqlbuilder.Format("(1 - %s / %s) * 100", columns.Anchor(), Divisor(columns.Term("revenue")))
		},
	}
}

// PercentOfRevenueCalculation expresses metric as a percentage of revenue
func PercentOfRevenueCalculation(metric string, scenario data.ScenarioType) Calculation {
	return Calculation{
		Name:     metric + " as % of revenue",
		Anchor:   metric,
		Scenario: scenario,
		Terms:    []Term{{Alias: "revenue", Metric: data.Revenue}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return percentOf(columns.Anchor(), columns.Term("revenue"))
		},
	}
}

// RatioCalculation divides numerator by denominator
func RatioCalculation(name, numerator, denominator string, scenario data.ScenarioType) Calculation {
	return Calculation{
		Name:     name,
		Anchor:   numerator,
		Scenario: scenario,
		Terms:    []Term{{Alias: "denominator", Metric: denominator}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return ratioOf(columns.Anchor(), columns.Term("denominator"))
		},
	}
}

// ScenarioComparisonCalculation is metric in scenario as a percentage of the
// same metric in the against scenario for the same year
func ScenarioComparisonCalculation(name, metric string, scenario, against data.ScenarioType) Calculation {
	return Calculation{
		Name:     name,
		Anchor:   metric,
		Scenario: scenario,
		Terms:    []Term{{Alias: "comparison", Metric: metric, Scenario: against}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return percentOf(columns.Anchor(), columns.Term("comparison"))
		},
	}
}

// EbitdaMarginCalculation is EBITDA as a percentage of revenue
func EbitdaMarginCalculation() Calculation {
	calculation := PercentOfRevenueCalculation(data.Ebitda, data.Actuals)
	calculation.Name = "EBITDA margin"
	return calculation
}

// RevenuePerEmployeeCalculation divides revenue by the average headcount
func RevenuePerEmployeeCalculation() Calculation {
	return Calculation{
		Name:     "Revenue per employee",
		Anchor:   data.Revenue,
		Scenario: data.Actuals,
		Terms:    []Term{{Alias: "headcount", Metric: data.Headcount, Aggregation: Average}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return ratioOf(columns.Anchor(), columns.Term("headcount"))
		},
	}
}

// OpexAsRevenueCalculation is operating expenses (sales & marketing, research
// & development, general & administrative) as a percentage of revenue
func OpexAsRevenueCalculation() Calculation {
	return Calculation{
		Name:     "OpEx as % of revenue",
		Anchor:   data.Revenue,
		Scenario: data.Actuals,
		Terms: []Term{
			{Alias: "sales_marketing", Metric: data.SalesAndMarketing},
			{Alias: "research_development", Metric: data.ResearchAndDevelopment},
			{Alias: "general_administrative", Metric: data.GeneralAndAdministrative},
		},
		Formula: func(columns Columns) sqlbuilder.Expr {
			opex := sqlbuilder.Format("(%s + %s + %s)",
				columns.Term("sales_marketing"),
				columns.Term("research_development"),
				columns.Term("general_administrative"))
			return percentOf(opex, columns.Anchor())
		},
	}
}

// DebtEbitdaCalculation is the average debt over EBITDA
func DebtEbitdaCalculation() Calculation {
	return Calculation{
		Name:              "Debt / EBITDA",
		Anchor:            data.Debt,
		Scenario:          data.Actuals,
		AnchorAggregation: Average,
		Terms:             []Term{{Alias: "ebitda", Metric: data.Ebitda}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return ratioOf(columns.Anchor(), columns.Term("ebitda"))
		},
	}
}

// GrossRetentionCalculation is the share of beginning ARR not lost to churn
func GrossRetentionCalculation() Calculation {
	return Calculation{
		Name:     "Gross retention",
		Anchor:   data.BeginningARR,
		Scenario: data.Actuals,
		Terms:    []Term{{Alias: "churn", Metric: data.Churn}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			retained := sqlbuilder.Format("(%s - %s)", columns.Anchor(), columns.Term("churn"))
			return percentOf(retained, columns.Anchor())
		},
	}
}

// ClvCacRatioCalculation compares customer lifetime value with acquisition cost
func ClvCacRatioCalculation() Calculation {
	return Calculation{
		Name:              "CLV / CAC",
		Anchor:            data.CustomerLifetimeValue,
		Scenario:          data.Actuals,
		AnchorAggregation: Average,
		Terms:             []Term{{Alias: "acquisition_cost", Metric: data.CustomerAcquisitionCost, Aggregation: Average}},
		Formula: func(columns Columns) sqlbuilder.Expr {
			return ratioOf(columns.Anchor(), columns.Term("acquisition_cost"))
		},
	}
}

// CacRatioCalculation is net new ARR per unit of sales & marketing spend
func CacRatioCalculation() Calculation {
	return RatioCalculation("CAC ratio", data.NetNewARR, data.SalesAndMarketing, data.Actuals)
}

// RevenueVsBudgetCalculation is actual revenue as a percentage of budget
func RevenueVsBudgetCalculation() Calculation {
	return ScenarioComparisonCalculation("Revenue vs budget", data.Revenue, data.Actuals, data.Budget)
}

// EbitdaVsBudgetCalculation is actual EBITDA as a percentage of budget
func EbitdaVsBudgetCalculation() Calculation {
	return ScenarioComparisonCalculation("EBITDA vs budget", data.Ebitda, data.Actuals, data.Budget)
}

func (engine *Engine) GrossProfit(ctx context.Context, scenario data.ScenarioType, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, GrossProfitCalculation(scenario), filters)
}

func (engine *Engine) GrossMargin(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, GrossMarginCalculation(), filters)
}

func (engine *Engine) EbitdaMargin(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, EbitdaMarginCalculation(), filters)
}

func (engine *Engine) RevenuePerEmployee(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, RevenuePerEmployeeCalculation(), filters)
}

func (engine *Engine) OpexAsRevenue(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, OpexAsRevenueCalculation(), filters)
}

func (engine *Engine) DebtEbitda(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, DebtEbitdaCalculation(), filters)
}

func (engine *Engine) GrossRetention(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, GrossRetentionCalculation(), filters)
}

func (engine *Engine) ClvCacRatio(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, ClvCacRatioCalculation(), filters)
}

func (engine *Engine) CacRatio(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, CacRatioCalculation(), filters)
}

func (engine *Engine) RevenueVsBudget(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, RevenueVsBudgetCalculation(), filters)
}

func (engine *Engine) EbitdaVsBudget(ctx context.Context, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, EbitdaVsBudgetCalculation(), filters)
}

// PercentOfRevenue reports metric as a percentage of revenue
func (engine *Engine) PercentOfRevenue(ctx context.Context, metric string, scenario data.ScenarioType, filters filter.Filters) []data.MetricRecord {
	return engine.CalculatedMetric(ctx, PercentOfRevenueCalculation(metric, scenario), filters)
}

// MetricRatio reports numerator divided by denominator
func (engine *Engine) MetricRatio(ctx context.Context, numerator, denominator string, scenario data.ScenarioType, filters filter.Filters) []data.MetricRecord {
	name := fmt.Sprintf("%s / %s", numerator, denominator)
	return engine.CalculatedMetric(ctx, RatioCalculation(name, numerator, denominator, scenario), filters)
}
