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
package library

import (
	"context"

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/filter"
	"github.com/shopspring/decimal"
)

// cohortMetrics names the Actuals metric a value range type classifies
var cohortMetrics = map[string]string{
	"size": data.Revenue,
}

// LatestValues keeps the value of the most recent year reported for each
// company. Null values are ignored.
func LatestValues(records []data.MetricRecord) map[string]decimal.Decimal {
	values := make(map[string]decimal.Decimal)
	years := make(map[string]string)

	for _, record := range records {
		if !record.Value.Valid {
			continue
		}

		if year, ok := years[record.CompanyID]; ok && year >= record.Year {
			continue
		}

		years[record.CompanyID] = record.Year
		values[record.CompanyID] = record.Value.Decimal
	}

	return values
}

// CohortCounts returns the number of companies falling in each range of
// rangeType, keyed by range id
func CohortCounts(ranges []*data.ValueRange, rangeType string, values map[string]decimal.Decimal) map[string]int {
	counts := make(map[string]int)
	for _, valueRange := range ranges {
		if valueRange.Type != rangeType {
			continue
		}

		counts[valueRange.ID] = 0
		for _, val := range values {
			if valueRange.Contains(val) {
				counts[valueRange.ID]++
			}
		}
	}

	return counts
}

// cohorts counts companies per range for every range type with a known metric
func (myLibrary *Library) cohorts(ctx context.Context, ranges []*data.ValueRange) map[string]int {
	counts := make(map[string]int)
	engine := myLibrary.Engine()

	for rangeType, metric := range cohortMetrics {
		values := LatestValues(engine.BaseMetric(ctx, metric, data.Actuals, filter.None()))
		for id, count := range CohortCounts(ranges, rangeType, values) {
			counts[id] = count
		}
	}

	return counts
}
