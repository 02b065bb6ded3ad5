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
package sqlbuilder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvkpi/sqlbuilder"
)

var _ = Describe("Builder", func() {
	Context("with a simple select", func() {
		It("renders fragments in the order they were added", func() {
			query, err := sqlbuilder.New().
				Table("company").
				Select("company.id", "company.name").
				Join(sqlbuilder.InnerJoin, "financial_scenario", "financial_scenario.company_id = company.id").
				Join(sqlbuilder.LeftJoin, "company_tag", "company_tag.company_id = company.id").
				WhereEqual(map[string]any{"financial_scenario.type": "Actuals"}).
				GroupBy("company.id", "company.name").
				OrderBy(sqlbuilder.Asc, "company.name").
				Limit(10).
				Offset(20).
				Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(query.SQL()).To(Equal("SELECT company.id, company.name FROM company " +
				"INNER JOIN financial_scenario ON financial_scenario.company_id = company.id " +
				"LEFT JOIN company_tag ON company_tag.company_id = company.id " +
				"WHERE financial_scenario.type = $1 " +
				"GROUP BY company.id, company.name " +
				"ORDER BY company.name ASC LIMIT $2 OFFSET $3"))
			Expect(query.Args()).To(Equal([]any{"Actuals", 10, 20}))
		})

		It("selects every column when no select list is given", func() {
			query, err := sqlbuilder.New().Table("tag").Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(query.SQL()).To(Equal("SELECT * FROM tag"))
			Expect(query.Args()).To(BeEmpty())
		})

		It("fails without a table", func() {
			_, err := sqlbuilder.New().Select("1").Build()
			Expect(err).To(MatchError(sqlbuilder.ErrNoTable))
		})
	})

	Context("with equality maps", func() {
		It("conjoins predicates in sorted column order and binds lists with ANY", func() {
			query, err := sqlbuilder.New().
				Table("company").
				WhereEqual(map[string]any{
					"company.vertical": "Fintech",
					"company.sector":   []string{"Tech", "Health"},
				}).
				Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(query.SQL()).To(Equal("SELECT * FROM company WHERE company.sector = ANY($1) AND company.vertical = $2"))
			Expect(query.Args()).To(Equal([]any{[]string{"Tech", "Health"}, "Fintech"}))
		})

		It("never places values in the SQL text", func() {
			query, err := sqlbuilder.New().
				Table("company").
				WhereEqual(map[string]any{"company.name": "O'Brien; DROP TABLE company"}).
				Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(query.SQL()).NotTo(ContainSubstring("O'Brien"))
			Expect(query.Args()).To(ConsistOf("O'Brien; DROP TABLE company"))
		})
	})

	Context("with subqueries", func() {
		It("renumbers placeholders across nested statements", func() {
			inner, err := sqlbuilder.New().
				Table("metric").
				DistinctOn("metric.id").
				Select("metric.id", "metric.value").
				Where(sqlbuilder.Eq("metric.name", "Revenue")).
				Subquery()
			Expect(err).NotTo(HaveOccurred())

			query, err := sqlbuilder.New().
				From(inner, "rows").
				SelectExpr(sqlbuilder.Raw("SUM(value)"), "total").
				Where(sqlbuilder.Raw("value > ?", 5)).
				Having(sqlbuilder.Or(
					sqlbuilder.Raw("COUNT(*) = ?", 1),
					sqlbuilder.Raw("COUNT(*) = ?", 4),
				)).
				Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(query.SQL()).To(Equal("SELECT SUM(value) AS total FROM (SELECT DISTINCT ON (metric.id) metric.id, metric.value " +
				"FROM metric WHERE metric.name = $1) AS rows WHERE value > $2 HAVING (COUNT(*) = $3) OR (COUNT(*) = $4)"))
			Expect(query.Args()).To(Equal([]any{"Revenue", 5, 1, 4}))
		})
	})

	Context("with updates", func() {
		It("builds an update with a subquery-derived value", func() {
			total, err := sqlbuilder.New().
				Table("metric").
				SelectExpr(sqlbuilder.Raw("SUM(value)"), "").
				Where(sqlbuilder.Eq("name", "Revenue")).
				Subquery()
			Expect(err).NotTo(HaveOccurred())

			query, err := sqlbuilder.New().
				Table("metric").
				Set(map[string]any{"type": "derived", "data_type": "currency"}).
				SetExpr("value", sqlbuilder.Format("(%s)", total)).
				WhereEqual(map[string]any{"id": "m-1"}).
				BuildUpdate()
			Expect(err).NotTo(HaveOccurred())
			Expect(query.SQL()).To(Equal("UPDATE metric SET data_type = $1, type = $2, " +
				"value = (SELECT SUM(value) FROM metric WHERE name = $3) WHERE id = $4"))
			Expect(query.Args()).To(Equal([]any{"currency", "derived", "Revenue", "m-1"}))
		})

		It("requires set conditions", func() {
			_, err := sqlbuilder.New().Table("metric").BuildUpdate()
			Expect(err).To(MatchError(sqlbuilder.ErrNoSet))
		})

		It("exposes the bare where clause", func() {
			where := sqlbuilder.New().Table("metric").WhereEqual(map[string]any{"id": "m-1"}).WhereClause()
			Expect(where.SQL).To(Equal("WHERE id = ?"))
			Expect(where.Args).To(Equal([]any{"m-1"}))
		})
	})
})

var _ = Describe("Rebind", func() {
	It("numbers placeholders outside quoted text", func() {
		Expect(sqlbuilder.Rebind(`SELECT '?' AS q, "we?ird" FROM t WHERE a = ? AND b = ?`)).
			To(Equal(`SELECT '?' AS q, "we?ird" FROM t WHERE a = $1 AND b = $2`))
	})
})
