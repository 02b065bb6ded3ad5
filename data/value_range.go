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
package data

import (
	"github.com/shopspring/decimal"
)

// ValueRange is a labeled numeric interval used to place companies in
// cohorts (e.g. size by revenue). A null bound is unbounded.
type ValueRange struct {
	ID       string              `db:"id"`
	Label    string              `db:"label"`
	MinValue decimal.NullDecimal `db:"min_value"`
	MaxValue decimal.NullDecimal `db:"max_value"`
	Type     string              `db:"type"`
}

// Contains returns true if min <= val < max
func (valueRange *ValueRange) Contains(val decimal.Decimal) bool {
	if valueRange.MinValue.Valid && val.LessThan(valueRange.MinValue.Decimal) {
		return false
	}

	if valueRange.MaxValue.Valid && !val.LessThan(valueRange.MaxValue.Decimal) {
		return false
	}

	return true
}
