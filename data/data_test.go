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
package data_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvkpi/data"
)

var _ = Describe("Scenarios", func() {
	It("parses scenario types case-insensitively", func() {
		Expect(data.ParseScenarioType("actuals")).To(Equal(data.Actuals))
		Expect(data.ParseScenarioType("BUDGET")).To(Equal(data.Budget))

		_, err := data.ParseScenarioType("Forecast")
		Expect(err).To(MatchError(data.ErrInvalidScenarioType))
	})

	It("round-trips the year through the scenario name", func() {
		name := data.Actuals.ScenarioName(2021)
		Expect(name).To(Equal("Actuals-2021"))
		Expect(data.ScenarioYear(name)).To(Equal(2021))
	})

	It("rejects malformed scenario names", func() {
		_, err := data.ScenarioYear("Actuals2021")
		Expect(err).To(MatchError(data.ErrInvalidScenarioName))

		_, err = data.ScenarioYear("Actuals-last")
		Expect(err).To(MatchError(data.ErrInvalidScenarioName))
	})

	DescribeTable("validating the scenario year against its period",
		func(name string, periodYear int, valid bool) {
			scenario := &data.FinancialScenario{Name: name, Type: data.Budget}
			period, err := data.NewTimePeriod("p", periodYear, "")
			Expect(err).NotTo(HaveOccurred())

			if valid {
				Expect(scenario.Validate(period)).To(Succeed())
			} else {
				Expect(scenario.Validate(period)).To(MatchError(data.ErrInvalidScenarioName))
			}
		},
		Entry("matching year", "Budget-2022", 2022, true),
		Entry("mismatched year", "Budget-2022", 2021, false),
		Entry("mismatched type", "Actuals-2022", 2022, false),
	)
})

var _ = Describe("Periods", func() {
	It("computes quarter ranges", func() {
		period, err := data.NewTimePeriod("q2", 2021, "Q2")
		Expect(err).NotTo(HaveOccurred())
		Expect(period.StartAt).To(Equal(time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC)))
		Expect(period.EndAt).To(Equal(time.Date(2021, time.June, 30, 0, 0, 0, 0, time.UTC)))
	})

	It("computes full-year ranges", func() {
		period, err := data.NewTimePeriod("fy", 2020, data.FullYear)
		Expect(err).NotTo(HaveOccurred())
		Expect(period.StartAt).To(Equal(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
		Expect(period.EndAt).To(Equal(time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC)))
	})

	It("rejects unknown period names", func() {
		_, err := data.NewTimePeriod("h1", 2020, "H1")
		Expect(err).To(MatchError(data.ErrInvalidPeriod))
		Expect(data.ValidatePeriod("Q5")).To(MatchError(data.ErrInvalidPeriod))
		Expect(data.QuarterIndex("Q3")).To(Equal(2))
		Expect(data.QuarterIndex(data.FullYear)).To(Equal(-1))
	})
})

var _ = Describe("ValueRange", func() {
	It("treats the lower bound as inclusive and the upper as exclusive", func() {
		valueRange := &data.ValueRange{
			Label:    "Mid",
			MinValue: decimal.NewNullDecimal(decimal.NewFromInt(10)),
			MaxValue: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		}
		Expect(valueRange.Contains(decimal.NewFromInt(10))).To(BeTrue())
		Expect(valueRange.Contains(decimal.NewFromInt(49))).To(BeTrue())
		Expect(valueRange.Contains(decimal.NewFromInt(50))).To(BeFalse())
		Expect(valueRange.Contains(decimal.NewFromInt(9))).To(BeFalse())
	})

	It("treats null bounds as open", func() {
		valueRange := &data.ValueRange{Label: "Large", MinValue: decimal.NewNullDecimal(decimal.NewFromInt(100))}
		Expect(valueRange.Contains(decimal.NewFromInt(1_000_000))).To(BeTrue())
	})
})

var _ = Describe("Observation", func() {
	It("parses a valid observation", func() {
		obs := &data.Observation{
			CompanyID:    "C1",
			ScenarioType: "actuals",
			Year:         2021,
			Period:       "Q1",
			Metric:       data.Revenue,
			Value:        " 25.5 ",
			Tags:         "SaaS; B2B;",
		}
		scenarioType, value, err := obs.Parse()
		Expect(err).NotTo(HaveOccurred())
		Expect(scenarioType).To(Equal(data.Actuals))
		Expect(value.Equal(decimal.RequireFromString("25.5"))).To(BeTrue())
		Expect(obs.TagNames()).To(Equal([]string{"SaaS", "B2B"}))
	})

	It("rejects invalid periods and values", func() {
		obs := &data.Observation{CompanyID: "C1", ScenarioType: "Actuals", Period: "Q9", Metric: data.Revenue, Value: "1"}
		_, _, err := obs.Parse()
		Expect(err).To(MatchError(data.ErrInvalidPeriod))

		obs.Period = "Q1"
		obs.Value = "n/a"
		_, _, err = obs.Parse()
		Expect(err).To(HaveOccurred())
	})
})
