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
package kpi_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/filter"
	"github.com/penny-vault/pvkpi/kpi"
)

var recordColumns = []string{"company_id", "name", "scenario", "metric", "year", "period", "value", "total", "average", "count_periods"}

func nullDecimal(val int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(val))
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		mock   pgxmock.PgxPoolIface
		engine *kpi.Engine
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		mock, err = pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
		Expect(err).ToNot(HaveOccurred())
		engine = kpi.NewEngine(mock)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		mock.Close()
	})

	Describe("base metrics", func() {
		It("renders period rows grouped by period class", func() {
			definition, err := kpi.LookupByMetric("actuals_revenue")
			Expect(err).ToNot(HaveOccurred())

			query, err := definition.Query(kpi.FullYearScope(), filter.None())
			Expect(err).ToNot(HaveOccurred())

			sql := query.SQL()
			Expect(sql).To(HavePrefix("SELECT company_id, name, scenario, metric, year, period, SUM(value) AS value, " +
				"SUM(value) AS total, AVG(value) AS average, COUNT(period_name) AS count_periods, " +
				"CASE WHEN period = 'Quarters' THEN SUM(value) * 4 / COUNT(period_name) ELSE SUM(value) END AS full_year_average " +
				"FROM (SELECT DISTINCT ON (metric.id) company.id AS company_id"))
			Expect(sql).To(ContainSubstring("substring(financial_scenario.name from position('-' in financial_scenario.name) + 1) AS year"))
			Expect(sql).To(ContainSubstring("CASE WHEN time_period.period = $1 THEN $2 ELSE $3 END AS period"))
			Expect(sql).To(ContainSubstring("LEFT JOIN company_tag ON company_tag.company_id = company.id"))
			Expect(sql).To(ContainSubstring("WHERE financial_scenario.type = $4 AND metric.name = $5 AND time_period.period = ANY($6)"))
			Expect(sql).To(ContainSubstring(") AS period_rows GROUP BY company_id, name, scenario, metric, year, period HAVING "))
			Expect(sql).To(HaveSuffix("ORDER BY name ASC, company_id ASC, year ASC, period ASC"))

			Expect(query.Args()).To(Equal([]any{
				data.FullYear, data.FullYear, data.Quarters,
				"Actuals", "Revenue", []string{"Full-year", "Q1", "Q2", "Q3", "Q4"},
				1, data.FullYear, 4, 4, data.Quarters,
			}))
		})

		It("restricts scenario years when asked", func() {
			definition, _ := kpi.LookupQuarters("actuals-revenue")
			window, _ := kpi.YearToDate("Q2")

			query, err := definition.Query(kpi.Scope{Window: window, Years: []int{2020, 2021}}, filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(query.SQL()).To(ContainSubstring("AND substring(financial_scenario.name from position('-' in financial_scenario.name) + 1) = ANY($7)"))
			Expect(query.Args()).To(ContainElement([]string{"2020", "2021"}))
			Expect(query.Args()).To(ContainElement([]string{"Q1", "Q2"}))
		})

		It("joins tags with an inner join when filtering by tag", func() {
			filters, err := filter.Compose(map[string][]string{"tag": {"SaaS"}, "sector": {"Tech"}})
			Expect(err).ToNot(HaveOccurred())

			definition, _ := kpi.LookupByMetric("actuals_ebitda")
			query, err := definition.Query(kpi.FullYearScope(), filters)
			Expect(err).ToNot(HaveOccurred())
			Expect(query.SQL()).To(ContainSubstring("INNER JOIN tag ON tag.id = company_tag.tag_id"))
			Expect(query.SQL()).To(ContainSubstring("company.sector = ANY($4) AND tag.name = ANY($5)"))
			Expect(query.SQL()).ToNot(ContainSubstring("'Tech'"))
		})

		It("renders the same statement every time", func() {
			definition, _ := kpi.LookupByMetric("gross_margin")
			first, err := definition.Query(kpi.FullYearScope(), filter.None())
			Expect(err).ToNot(HaveOccurred())
			second, err := definition.Query(kpi.FullYearScope(), filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(second.SQL()).To(Equal(first.SQL()))
			Expect(second.Args()).To(Equal(first.Args()))
		})

		It("scans report rows", func() {
			definition, _ := kpi.LookupByMetric("actuals_revenue")
			query, _ := definition.Query(kpi.FullYearScope(), filter.None())

			rows := pgxmock.NewRows(recordColumns).
				AddRow("c1", "Acme", "Actuals-2021", "Revenue", "2021", "Full-year", nullDecimal(100), nullDecimal(100), nullDecimal(100), 1).
				AddRow("c2", "Globex", "Actuals-2021", "Revenue", "2021", "Quarters", nullDecimal(40), nullDecimal(40), nullDecimal(10), 4)
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnRows(rows)

			records := engine.BaseMetric(ctx, data.Revenue, data.Actuals, filter.None())
			Expect(records).To(HaveLen(2))
			Expect(records[0].CompanyID).To(Equal("c1"))
			Expect(records[0].Value.Decimal.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(records[1].Period).To(Equal(data.Quarters))
			Expect(records[1].Average.Decimal.Equal(decimal.NewFromInt(10))).To(BeTrue())
			Expect(records[1].CountPeriods).To(Equal(4))
		})

		It("projects the full-year average of a year-to-date report", func() {
			definition, _ := kpi.LookupQuarters("actuals-revenue")
			window, _ := kpi.YearToDate("Q2")
			scope := kpi.Scope{Window: window}
			query, err := definition.Query(scope, filter.None())
			Expect(err).ToNot(HaveOccurred())

			rows := pgxmock.NewRows(append(recordColumns, "full_year_average")).
				AddRow("c1", "Acme", "Actuals-2021", "Revenue", "2021", "Quarters", nullDecimal(30), nullDecimal(30), nullDecimal(15), 2, nullDecimal(60))
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnRows(rows)

			records := engine.BaseMetricScope(ctx, data.Revenue, data.Actuals, scope, filter.None())
			Expect(records).To(HaveLen(1))
			Expect(records[0].FullYearAverage.Valid).To(BeTrue())
			Expect(records[0].FullYearAverage.Decimal.Equal(decimal.NewFromInt(60))).To(BeTrue())
		})

		It("returns an empty report when the query fails", func() {
			definition, _ := kpi.LookupByMetric("actuals_revenue")
			query, _ := definition.Query(kpi.FullYearScope(), filter.None())
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnError(errors.New("relation \"metric\" does not exist"))

			records := engine.BaseMetric(ctx, data.Revenue, data.Actuals, filter.None())
			Expect(records).ToNot(BeNil())
			Expect(records).To(BeEmpty())
		})
	})

	Describe("calculated metrics", func() {
		It("correlates terms on company, period and scenario", func() {
			query, err := kpi.Definition{Kind: kpi.KindRatio, Calculation: kpi.GrossMarginCalculation()}.
				Query(kpi.FullYearScope(), filter.None())
			Expect(err).ToNot(HaveOccurred())

			sql := query.SQL()
			Expect(sql).To(ContainSubstring("(SELECT sub_metric.value FROM metric AS sub_metric " +
				"INNER JOIN scenario_metric AS sub_sm ON sub_sm.metric_id = sub_metric.id " +
				"INNER JOIN financial_scenario AS sub_scenario ON sub_scenario.id = sub_sm.scenario_id " +
				"INNER JOIN time_period AS sub_period ON sub_period.id = sub_metric.period_id " +
				"WHERE sub_metric.name = $5 AND sub_scenario.company_id = company.id " +
				"AND sub_period.period = time_period.period AND sub_scenario.name = financial_scenario.name " +
				"LIMIT $6) AS revenue"))
			Expect(sql).To(ContainSubstring("(1 - SUM(value) / NULLIF(CASE WHEN COUNT(revenue) = COUNT(*) THEN SUM(revenue) END, 0)) * 100 AS value"))
			Expect(sql).To(HavePrefix("SELECT company_id, name, scenario, $1::text AS metric, year, period, "))
			Expect(query.Args()).To(ContainElements("Gross margin", "Cost of goods", "Revenue", "Actuals"))
		})

		It("catalogs gross profit as a difference", func() {
			for _, key := range []string{"gross_profit", "actuals_gross_profit", "budget_gross_profit"} {
				definition, err := kpi.LookupByMetric(key)
				Expect(err).ToNot(HaveOccurred())
				Expect(definition.Kind).To(Equal(kpi.KindDifference), key)
				Expect(definition.Kind.String()).To(Equal("difference"))
			}

			margin, _ := kpi.LookupByMetric("gross_margin")
			Expect(margin.Kind).To(Equal(kpi.KindRatio))
		})

		It("matches the other scenario by year for scenario comparisons", func() {
			definition, err := kpi.LookupByMetric("revenue_vs_budget")
			Expect(err).ToNot(HaveOccurred())
			Expect(definition.Kind).To(Equal(kpi.KindScenarioComparison))

			query, err := definition.Query(kpi.FullYearScope(), filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(query.SQL()).To(ContainSubstring("sub_scenario.type = $"))
			Expect(query.SQL()).To(ContainSubstring("substring(sub_scenario.name from position('-' in sub_scenario.name) + 1) = " +
				"substring(financial_scenario.name from position('-' in financial_scenario.name) + 1)"))
			Expect(query.Args()).To(ContainElements("Budget", "Actuals"))
		})

		It("averages stock metrics", func() {
			query, err := kpi.Definition{Kind: kpi.KindRatio, Calculation: kpi.DebtEbitdaCalculation()}.
				Query(kpi.FullYearScope(), filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(query.SQL()).To(ContainSubstring("AVG(value) / NULLIF(CASE WHEN COUNT(ebitda) = COUNT(*) THEN SUM(ebitda) END, 0) AS value"))
		})

		It("guards every denominator", func() {
			for _, definition := range kpi.ByMetricCatalog() {
				if definition.Kind == kpi.KindBase {
					continue
				}
				query, err := definition.Query(kpi.FullYearScope(), filter.None())
				Expect(err).ToNot(HaveOccurred(), definition.Key)
				if definition.Key != "gross_profit" && definition.Key != "actuals_gross_profit" && definition.Key != "budget_gross_profit" {
					Expect(query.SQL()).To(ContainSubstring("NULLIF("), definition.Key)
				}
			}
		})

		DescribeTable("rejects malformed calculations",
			func(mutate func(*kpi.Calculation)) {
				calculation := kpi.GrossProfitCalculation(data.Actuals)
				mutate(&calculation)
				Expect(calculation.Validate()).To(MatchError(kpi.ErrInvalidCalculation))

				// no statement reaches the database
				Expect(engine.CalculatedMetric(ctx, calculation, filter.None())).To(BeEmpty())
			},
			Entry("no anchor", func(c *kpi.Calculation) { c.Anchor = "" }),
			Entry("no scenario", func(c *kpi.Calculation) { c.Scenario = "" }),
			Entry("no formula", func(c *kpi.Calculation) { c.Formula = nil }),
			Entry("reserved alias", func(c *kpi.Calculation) { c.Terms[0].Alias = "value" }),
			Entry("injected alias", func(c *kpi.Calculation) { c.Terms[0].Alias = "x; DROP TABLE metric" }),
		)

		It("scans null values for missing or zero denominators", func() {
			definition, _ := kpi.LookupByMetric("gross_margin")
			query, _ := definition.Query(kpi.FullYearScope(), filter.None())

			rows := pgxmock.NewRows([]string{"company_id", "name", "scenario", "metric", "year", "period", "value", "count_periods"}).
				AddRow("c1", "Acme", "Actuals-2021", "Gross margin", "2021", "Full-year", nullDecimal(60), 1).
				AddRow("c3", "Initech", "Actuals-2021", "Gross margin", "2021", "Full-year", decimal.NullDecimal{}, 1)
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnRows(rows)

			records := engine.GrossMargin(ctx, filter.None())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Value.Decimal.Equal(decimal.NewFromInt(60))).To(BeTrue())
			Expect(records[1].Value.Valid).To(BeFalse())
		})
	})

	Describe("dispatch", func() {
		It("routes base keys to the base generator", func() {
			definition, err := kpi.LookupByMetric("actuals_revenue")
			Expect(err).ToNot(HaveOccurred())
			Expect(definition.Kind).To(Equal(kpi.KindBase))
			Expect(definition.Metric).To(Equal(data.Revenue))
			Expect(definition.Scenario).To(Equal(data.Actuals))

			query, _ := definition.Query(kpi.FullYearScope(), filter.None())
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).
				WillReturnRows(pgxmock.NewRows(recordColumns).
					AddRow("c1", "Acme", "Actuals-2021", "Revenue", "2021", "Full-year", nullDecimal(100), nullDecimal(100), nullDecimal(100), 1))

			records, err := engine.MetricRecords(ctx, "actuals_revenue", filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Metric).To(Equal(data.Revenue))
		})

		It("reports unknown keys", func() {
			records, err := engine.MetricRecords(ctx, "actuals_unicorns", filter.None())
			Expect(err).To(MatchError(kpi.ErrMetricNotFound))
			Expect(err.Error()).To(Equal("Metric not found"))
			Expect(records).To(BeNil())
		})

		It("collapses failures of a known key to an empty report", func() {
			definition, _ := kpi.LookupByMetric("ebitda_margin")
			query, _ := definition.Query(kpi.FullYearScope(), filter.None())
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnError(errors.New("connection reset"))

			records, err := engine.MetricRecords(ctx, "ebitda_margin", filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(records).ToNot(BeNil())
			Expect(records).To(BeEmpty())
		})

		It("resolves base metrics in quarterly reports from the scenario", func() {
			definition, _ := kpi.LookupQuarters("actuals-sales-and-marketing")
			window, _ := kpi.Quarter("Q2")
			query, _ := definition.Query(kpi.Scope{Window: window, Years: []int{2021}}, filter.None())
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnRows(pgxmock.NewRows(recordColumns))

			records, err := engine.MetricRecordsByQuarters(ctx, kpi.SingleQuarter, data.SalesAndMarketing, data.Actuals, []int{2021}, "Q2", filter.None())
			Expect(err).ToNot(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("resolves calculated metrics in quarterly reports without a scenario", func() {
			definition, _ := kpi.LookupQuarters("gross_margin")
			window, _ := kpi.YearToDate("Q3")
			query, _ := definition.Query(kpi.Scope{Window: window}, filter.None())
			mock.ExpectQuery(query.SQL()).WithArgs(query.Args()...).WillReturnRows(pgxmock.NewRows(recordColumns))

			_, err := engine.MetricRecordsByQuarters(ctx, kpi.YearToDateReport, "gross_margin", "", nil, "Q3", filter.None())
			Expect(err).ToNot(HaveOccurred())
		})

		It("validates quarterly requests before querying", func() {
			_, err := engine.MetricRecordsByQuarters(ctx, kpi.SingleQuarter, data.Revenue, data.Actuals, nil, "Q9", filter.None())
			Expect(err).To(MatchError(kpi.ErrInvalidPeriod))

			_, err = engine.MetricRecordsByQuarters(ctx, kpi.ReportType("monthly"), data.Revenue, data.Actuals, nil, "Q1", filter.None())
			Expect(err).To(MatchError(kpi.ErrInvalidReportType))

			_, err = engine.MetricRecordsByQuarters(ctx, kpi.SingleQuarter, data.Revenue, "", nil, "Q1", filter.None())
			Expect(err).To(MatchError(kpi.ErrInvalidScenario))

			_, err = engine.MetricRecordsByQuarters(ctx, kpi.SingleQuarter, "Unicorns", data.Actuals, nil, "Q1", filter.None())
			Expect(err).To(MatchError(kpi.ErrMetricNotFound))
		})
	})
})
