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
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"github.com/penny-vault/pvkpi/data"
	"golang.org/x/exp/maps"
)

// Kind selects the generator a catalog entry dispatches to
type Kind int

const (
	KindBase Kind = iota
	KindRatio
	KindPercentOfRevenue
	KindScenarioComparison
	KindDifference
)

func (kind Kind) String() string {
	switch kind {
	case KindBase:
		return "base"
	case KindRatio:
		return "ratio"
	case KindPercentOfRevenue:
		return "percent of revenue"
	case KindScenarioComparison:
		return "scenario comparison"
	case KindDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// Definition is a catalog entry: a base metric (Metric and Scenario) or a
// calculation
type Definition struct {
	Key         string
	Kind        Kind
	Metric      string
	Scenario    data.ScenarioType
	Calculation Calculation
}

// Label is the metric name reported in result rows
func (definition Definition) Label() string {
	if definition.Kind == KindBase {
		return definition.Metric
	}
	return definition.Calculation.Name
}

var (
	byMetricCatalog = buildCatalog(ByMetricKey)
	quartersCatalog = buildCatalog(QuartersKey)
)

// metricSlug normalizes a metric name, e.g. "Sales & marketing" becomes
// sales_and_marketing
func metricSlug(metric string) string {
	return strings.ReplaceAll(slug.Make(metric), "-", "_")
}

// ByMetricKey is the catalog key of a base metric in by-metric reports,
// e.g. actuals_revenue
func ByMetricKey(scenario data.ScenarioType, metric string) string {
	return scenario.Key() + "_" + metricSlug(metric)
}

// QuartersKey is the catalog key of a base metric in quarterly reports,
// e.g. actuals-revenue
func QuartersKey(scenario data.ScenarioType, metric string) string {
	return slug.Make(string(scenario) + " " + metric)
}

func calculated(key string, kind Kind, calculation Calculation) Definition {
	return Definition{Key: key, Kind: kind, Scenario: calculation.Scenario, Calculation: calculation}
}

func buildCatalog(baseKey func(data.ScenarioType, string) string) map[string]Definition {
	definitions := []Definition{
		calculated("gross_profit", KindDifference, GrossProfitCalculation(data.Actuals)),
		calculated("actuals_gross_profit", KindDifference, GrossProfitCalculation(data.Actuals)),
		calculated("budget_gross_profit", KindDifference, GrossProfitCalculation(data.Budget)),
		calculated("gross_margin", KindRatio, GrossMarginCalculation()),
		calculated("ebitda_margin", KindPercentOfRevenue, EbitdaMarginCalculation()),
		calculated("revenue_per_employee", KindRatio, RevenuePerEmployeeCalculation()),
		calculated("opex_as_revenue", KindPercentOfRevenue, OpexAsRevenueCalculation()),
		calculated("debt_ebitda", KindRatio, DebtEbitdaCalculation()),
		calculated("gross_retention", KindRatio, GrossRetentionCalculation()),
		calculated("clv_cac_ratio", KindRatio, ClvCacRatioCalculation()),
		calculated("cac_ratio", KindRatio, CacRatioCalculation()),
		calculated("revenue_vs_budget", KindScenarioComparison, RevenueVsBudgetCalculation()),
		calculated("ebitda_vs_budget", KindScenarioComparison, EbitdaVsBudgetCalculation()),
	}

	for _, metric := range []string{data.CostOfGoods, data.SalesAndMarketing, data.ResearchAndDevelopment, data.GeneralAndAdministrative} {
		key := metricSlug(metric) + "_as_revenue"
		definitions = append(definitions, calculated(key, KindPercentOfRevenue, PercentOfRevenueCalculation(metric, data.Actuals)))
	}

	for _, scenario := range data.ScenarioTypes {
		for _, metric := range data.MetricNames {
			definitions = append(definitions, Definition{
				Key:      baseKey(scenario, metric),
				Kind:     KindBase,
				Metric:   metric,
				Scenario: scenario,
			})
		}
	}

	catalog := make(map[string]Definition, len(definitions))
	for _, definition := range definitions {
		catalog[definition.Key] = definition
	}

	return catalog
}

func sortedDefinitions(catalog map[string]Definition) []Definition {
	keys := maps.Keys(catalog)
	slices.Sort(keys)

	definitions := make([]Definition, len(keys))
	for idx, key := range keys {
		definitions[idx] = catalog[key]
	}

	return definitions
}

// ByMetricCatalog lists the by-metric report catalog sorted by key
func ByMetricCatalog() []Definition {
	return sortedDefinitions(byMetricCatalog)
}

// QuartersCatalog lists the quarterly report catalog sorted by key
func QuartersCatalog() []Definition {
	return sortedDefinitions(quartersCatalog)
}

// LookupByMetric finds key in the by-metric catalog
func LookupByMetric(key string) (Definition, error) {
	definition, ok := byMetricCatalog[key]
	if !ok {
		return Definition{}, ErrMetricNotFound
	}
	return definition, nil
}

// LookupQuarters finds key in the quarterly catalog
func LookupQuarters(key string) (Definition, error) {
	definition, ok := quartersCatalog[key]
	if !ok {
		return Definition{}, ErrMetricNotFound
	}
	return definition, nil
}
