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
package library_test

import (
	"context"
	"errors"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/library"
)

// insertArity is the number of values each upsert binds
var insertArity = map[string]int{
	"company":            6,
	"tag":                2,
	"company_tag":        2,
	"time_period":        4,
	"financial_scenario": 7,
	"metric":             7,
	"scenario_metric":    3,
}

func anyArgs(table string) []any {
	args := make([]any, insertArity[table])
	for idx := range args {
		args[idx] = pgxmock.AnyArg()
	}
	return args
}

func expectInsert(mock pgxmock.PgxPoolIface, table string) {
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO " + table + " (")).
		WithArgs(anyArgs(table)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

var _ = Describe("Load", func() {
	var (
		ctx  context.Context
		mock pgxmock.PgxPoolIface
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		mock, err = pgxmock.NewPool()
		Expect(err).ToNot(HaveOccurred())
		mock.ExpectBegin()
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		mock.Close()
	})

	observation := func(scenario, period, metric, value string) *data.Observation {
		return &data.Observation{
			CompanyID:    "C1",
			CompanyName:  "Acme",
			Sector:       "Tech",
			Tags:         "SaaS",
			ScenarioType: scenario,
			Year:         2021,
			Period:       period,
			Metric:       metric,
			Value:        value,
		}
	}

	It("writes each company, period and scenario once", func() {
		expectInsert(mock, "company")
		expectInsert(mock, "tag")
		expectInsert(mock, "company_tag")
		expectInsert(mock, "time_period")
		expectInsert(mock, "financial_scenario")
		expectInsert(mock, "metric")
		expectInsert(mock, "scenario_metric")

		expectInsert(mock, "metric")
		expectInsert(mock, "scenario_metric")

		expectInsert(mock, "time_period")
		expectInsert(mock, "metric")
		expectInsert(mock, "scenario_metric")

		tx, err := mock.Begin(ctx)
		Expect(err).ToNot(HaveOccurred())

		stats, err := library.LoadObservations(ctx, tx, []*data.Observation{
			observation("Actuals", "Full-year", data.Revenue, "100"),
			observation("actuals", "Full-year", data.CostOfGoods, "40"),
			observation("Forecast", "Full-year", data.Revenue, "120"),
			observation("Actuals", "Q1", data.Revenue, "25"),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(stats).To(Equal(library.LoadStats{Companies: 1, Scenarios: 1, Metrics: 3, Skipped: 1}))
	})

	It("stops at the first database error", func() {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO company (")).
			WithArgs("C1", "Acme", "Tech", "", "", false).
			WillReturnError(errors.New("permission denied"))

		tx, err := mock.Begin(ctx)
		Expect(err).ToNot(HaveOccurred())

		_, err = library.LoadObservations(ctx, tx, []*data.Observation{
			observation("Actuals", "Full-year", data.Revenue, "100"),
			observation("Actuals", "Q1", data.Revenue, "25"),
		})
		Expect(err).To(MatchError("permission denied"))
	})

	It("skips unparseable values", func() {
		tx, err := mock.Begin(ctx)
		Expect(err).ToNot(HaveOccurred())

		stats, err := library.LoadObservations(ctx, tx, []*data.Observation{
			observation("Actuals", "Full-year", data.Revenue, "lots"),
			observation("Actuals", "H1", data.Revenue, "10"),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Skipped).To(Equal(2))
		Expect(stats.Metrics).To(BeZero())
	})
})

var _ = Describe("StableID", func() {
	It("is deterministic", func() {
		Expect(library.StableID("metric", "C1", "Actuals-2021")).To(Equal(library.StableID("metric", "C1", "Actuals-2021")))
	})

	It("separates parts", func() {
		Expect(library.StableID("a", "bc")).ToNot(Equal(library.StableID("ab", "c")))
	})
})
