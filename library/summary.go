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
	"fmt"
	"strings"
	"time"

	"github.com/penny-vault/pvkpi/data"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the library in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString(fmt.Sprintf("# %s\n", myLibrary.Name))
	builder.WriteString("## Details\n\n")
	builder.WriteString(fmt.Sprintf("Owner: %s\n\n", myLibrary.Owner))

	numCompanies, err := myLibrary.NumCompanies(ctx)
	if err != nil {
		return "", err
	}
	builder.WriteString(p.Sprintf("  * Companies: %d\n", numCompanies))

	numMetrics, err := myLibrary.NumMetrics(ctx)
	if err != nil {
		return "", err
	}
	builder.WriteString(p.Sprintf("  * Metric values: %d\n", numMetrics))

	years, err := myLibrary.Years(ctx)
	if err != nil {
		return "", err
	}

	if len(years) > 0 {
		builder.WriteString(fmt.Sprintf("  * Years: %s - %s\n", years[0], years[len(years)-1]))
	}
	builder.WriteString("\n")

	lastUpdated, err := myLibrary.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	if lastUpdated.Equal(time.Time{}) {
		builder.WriteString("Last Updated: Never\n\n")
	} else {
		age := timeago.English.Format(lastUpdated)
		builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n\n", age, lastUpdated.Local().Format("01/02/2006")))
	}

	builder.WriteString("## Scenarios\n\n")

	counts, err := myLibrary.ScenarioCounts(ctx)
	if err != nil {
		return "", err
	}

	for _, count := range counts {
		builder.WriteString(p.Sprintf("  * %s: %d\n", count.Type, count.Count))
	}

	ranges, err := myLibrary.ValueRanges(ctx)
	if err != nil {
		return "", err
	}

	if len(ranges) > 0 {
		cohorts := myLibrary.cohorts(ctx, ranges)
		builder.WriteString("\n## Value ranges\n\n")
		for _, valueRange := range ranges {
			builder.WriteString(fmt.Sprintf("  * %s %s: %s", valueRange.Type, valueRange.Label, describeRange(valueRange)))
			if count, ok := cohorts[valueRange.ID]; ok {
				builder.WriteString(p.Sprintf(" (%d companies)", count))
			}
			builder.WriteString("\n")
		}
	}

	return builder.String(), nil
}

func describeRange(valueRange *data.ValueRange) string {
	switch {
	case valueRange.MinValue.Valid && valueRange.MaxValue.Valid:
		return fmt.Sprintf("%s to %s", valueRange.MinValue.Decimal, valueRange.MaxValue.Decimal)
	case valueRange.MinValue.Valid:
		return fmt.Sprintf("%s and above", valueRange.MinValue.Decimal)
	case valueRange.MaxValue.Valid:
		return fmt.Sprintf("below %s", valueRange.MaxValue.Decimal)
	default:
		return "any value"
	}
}
