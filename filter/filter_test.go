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
package filter_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvkpi/filter"
	"github.com/penny-vault/pvkpi/sqlbuilder"
)

var _ = Describe("Compose", func() {
	It("drops blank values", func() {
		filters, err := filter.Compose(map[string][]string{"sector": {"Tech", ""}})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.Values()).To(Equal(map[string][]string{"sector": {"Tech"}}))
		Expect(filters.Literals()).To(Equal(map[string][]string{"sector": {"'Tech'"}}))
	})

	It("drops computed attributes", func() {
		filters, err := filter.Compose(map[string][]string{
			"size_cohort":  {"Large"},
			"margin_group": {"High"},
			"vertical":     {"Fintech"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.Values()).To(Equal(map[string][]string{"vertical": {"Fintech"}}))
	})

	It("drops attributes whose values are all blank", func() {
		filters, err := filter.Compose(map[string][]string{"tag": {"", "  "}})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.Values()).To(BeEmpty())
		Expect(filters.HasTag()).To(BeFalse())
	})

	It("rejects unknown attributes", func() {
		_, err := filter.Compose(map[string][]string{"country": {"US"}})
		Expect(err).To(MatchError(filter.ErrInvalidFilter))
	})

	It("maps attributes to qualified columns", func() {
		filters, err := filter.Compose(map[string][]string{
			"investor_profile": {"Growth"},
			"tag":              {"SaaS"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.Columns()).To(Equal(map[string][]string{
			"company.investor_profile_name": {"Growth"},
			"tag.name":                      {"SaaS"},
		}))
	})

	It("escapes quotes in literals", func() {
		Expect(filter.QuoteLiteral("O'Brien")).To(Equal("'O''Brien'"))
	})
})

var _ = Describe("Filters", func() {
	It("left joins tags when no tag filter is present", func() {
		filters, err := filter.Compose(map[string][]string{"sector": {"Tech"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.TagJoin()).To(Equal(sqlbuilder.LeftJoin))

		query, err := filters.Apply(sqlbuilder.New().Table("company")).Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(query.SQL()).To(Equal("SELECT * FROM company " +
			"LEFT JOIN company_tag ON company_tag.company_id = company.id " +
			"LEFT JOIN tag ON tag.id = company_tag.tag_id " +
			"WHERE company.sector = ANY($1)"))
		Expect(query.Args()).To(Equal([]any{[]string{"Tech"}}))
	})

	It("inner joins tags when filtering by tag", func() {
		filters, err := filter.Compose(map[string][]string{"tag": {"SaaS"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.TagJoin()).To(Equal(sqlbuilder.InnerJoin))

		query, err := filters.Apply(sqlbuilder.New().Table("company")).Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(query.SQL()).To(ContainSubstring("INNER JOIN company_tag"))
		Expect(query.SQL()).To(ContainSubstring("INNER JOIN tag"))
		Expect(query.SQL()).To(HaveSuffix("WHERE tag.name = ANY($1)"))
	})

	It("produces a stable key", func() {
		filters, err := filter.Compose(map[string][]string{"vertical": {"B"}, "sector": {"A"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(filters.Key()).To(Equal("sector=A;vertical=B"))
		Expect(filter.None().Key()).To(Equal(""))
	})
})
