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
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gocarina/gocsv"
	"github.com/goccy/go-json"
	"github.com/penny-vault/pvkpi/backblaze"
	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/filter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	reportFilters []string
	outputCSV     bool
	outputJSON    bool
	explain       bool
	uploadTarget  string
)

// reportRow is the flat form of a metric record written to CSV
type reportRow struct {
	CompanyID       string `csv:"company_id"`
	Name            string `csv:"name"`
	Scenario        string `csv:"scenario"`
	Metric          string `csv:"metric"`
	Year            string `csv:"year"`
	Period          string `csv:"period"`
	Value           string `csv:"value"`
	Total           string `csv:"total"`
	Average         string `csv:"average"`
	CountPeriods    int    `csv:"count_periods"`
	FullYearAverage string `csv:"full_year_average"`
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&reportFilters, "filter", "f", nil, "restrict companies, e.g. --filter sector=Tech --filter tag=SaaS,B2B")
	cmd.Flags().BoolVar(&outputCSV, "csv", false, "write the report as CSV")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "write the report as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the SQL the report runs instead of running it")
	cmd.Flags().StringVar(&uploadTarget, "upload", "", "also upload the report as CSV to a backblaze bucket, e.g. my-bucket/reports")
	cmd.MarkFlagsMutuallyExclusive("csv", "json", "explain")
}

// publishRecords uploads records as <name>.csv to the bucket and directory named by --upload
func publishRecords(name string, records []data.MetricRecord) error {
	if uploadTarget == "" {
		return nil
	}

	bucketName, dirname, _ := strings.Cut(uploadTarget, "/")

	buf := &bytes.Buffer{}
	if err := gocsv.Marshal(toReportRows(records), buf); err != nil {
		return err
	}

	fn := fmt.Sprintf("%s-%s.csv", name, time.Now().Format("20060102"))
	return backblaze.Upload(buf.Bytes(), fn, bucketName, dirname)
}

// parseFilters turns attr=value[,value...] flags into filters
func parseFilters(flags []string) (filter.Filters, error) {
	raw := make(map[string][]string, len(flags))
	for _, flag := range flags {
		attr, vals, ok := strings.Cut(flag, "=")
		if !ok {
			return filter.Filters{}, fmt.Errorf("%w: %q is not of the form attribute=value", filter.ErrInvalidFilter, flag)
		}

		attr = strings.TrimSpace(attr)
		raw[attr] = append(raw[attr], strings.Split(vals, ",")...)
	}

	return filter.Compose(raw)
}

func nullString(val decimal.NullDecimal) string {
	if !val.Valid {
		return ""
	}
	return val.Decimal.String()
}

func toReportRows(records []data.MetricRecord) []*reportRow {
	rows := make([]*reportRow, len(records))
	for idx, record := range records {
		rows[idx] = &reportRow{
			CompanyID:       record.CompanyID,
			Name:            record.Name,
			Scenario:        record.Scenario,
			Metric:          record.Metric,
			Year:            record.Year,
			Period:          record.Period,
			Value:           nullString(record.Value),
			Total:           nullString(record.Total),
			Average:         nullString(record.Average),
			CountPeriods:    record.CountPeriods,
			FullYearAverage: nullString(record.FullYearAverage),
		}
	}
	return rows
}

// markdownTable renders records as a markdown table with grouped digits
func markdownTable(records []data.MetricRecord) string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("| Company | Scenario | Year | Period | Value | Periods |\n")
	builder.WriteString("|---|---|---|---|---:|---:|\n")

	for _, record := range records {
		value := "n/a"
		if record.Value.Valid {
			value = p.Sprintf("%.2f", record.Value.Decimal.InexactFloat64())
		}

		builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d |\n",
			escapeCell(record.Name), record.Scenario, record.Year, record.Period, value, record.CountPeriods))
	}

	return builder.String()
}

func escapeCell(val string) string {
	return strings.ReplaceAll(val, "|", "\\|")
}

// writeRecords writes records in the format selected by the output flags
func writeRecords(w io.Writer, records []data.MetricRecord) error {
	switch {
	case outputCSV:
		return gocsv.Marshal(toReportRows(records), w)
	case outputJSON:
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "No complete periods match the report.")
			return err
		}

		out, err := newRenderer().Render(markdownTable(records))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	}
}

// reportHeader is the boxed description printed above a rendered report
func reportHeader(title string, details [][2]string) string {
	var sb strings.Builder
	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	fmt.Fprintf(&sb, "%s\n", lipgloss.NewStyle().Bold(true).Render(strings.ToUpper(title)))
	for _, detail := range details {
		fmt.Fprintf(&sb, "\n%s: %s", detail[0], keyword(detail[1]))
	}

	return lipgloss.NewStyle().
		Width(60).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2).
		Render(sb.String())
}

func describeFilters(filters filter.Filters) string {
	if key := filters.Key(); key != "" {
		return key
	}
	return "all companies"
}
