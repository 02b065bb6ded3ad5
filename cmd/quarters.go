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
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/kpi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	quarterPeriod   string
	quarterType     string
	quarterScenario string
	quarterYears    []int
)

// quartersCmd represents the quarters command
var quartersCmd = &cobra.Command{
	Use:   "quarters <metric>",
	Short: "Report a metric for one quarter or year to date",
	Long: `quarters reports a metric for a single quarter or, with --type year_to_date,
for every quarter from Q1 through --period. A company is only reported when
every quarter in the window is present.

The metric is a base metric name combined with --scenario (e.g. Revenue) or a
calculated catalog key (e.g. gross_margin).

Also see: metrics, report`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		filters, err := parseFilters(reportFilters)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid filter")
		}

		reportType, err := kpi.ParseReportType(quarterType)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid report type")
		}

		var scenario data.ScenarioType
		if quarterScenario != "" {
			scenario, err = data.ParseScenarioType(quarterScenario)
			if err != nil {
				log.Fatal().Err(err).Msg("invalid scenario")
			}
		}

		window, err := reportType.Window(quarterPeriod)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid period")
		}

		definition, err := kpi.LookupQuarters(args[0])
		if err != nil {
			definition, err = kpi.LookupQuarters(kpi.QuartersKey(scenario, args[0]))
		}
		if err != nil {
			fmt.Printf("Metric '%s' doesn't exist.\n", args[0])
			fmt.Println("Run `pvkpi metrics --quarters` for a complete list of available metrics")
			os.Exit(1)
		}

		if explain {
			printQuery(definition, kpi.Scope{Window: window, Years: quarterYears}, filters)
			return
		}

		if !outputCSV && !outputJSON {
			fmt.Println(reportHeader(definition.Label(), [][2]string{
				{"Metric", definition.Key},
				{"Window", window.String()},
				{"Years", describeYears(quarterYears)},
				{"Companies", describeFilters(filters)},
			}))
		}

		records := runReport(ctx, func(engine *kpi.Engine) ([]data.MetricRecord, error) {
			return engine.MetricRecordsByQuarters(ctx, reportType, args[0], scenario, quarterYears, quarterPeriod, filters)
		})

		if err := writeRecords(os.Stdout, records); err != nil {
			log.Fatal().Err(err).Msg("could not write report")
		}

		if err := publishRecords(definition.Key, records); err != nil {
			log.Fatal().Err(err).Str("Target", uploadTarget).Msg("could not upload report")
		}
	},
}

func init() {
	rootCmd.AddCommand(quartersCmd)
	addReportFlags(quartersCmd)

	quartersCmd.Flags().StringVarP(&quarterPeriod, "period", "p", "Q4", "quarter to report (Q1-Q4)")
	quartersCmd.Flags().StringVarP(&quarterType, "type", "t", "", "report type: empty for a single quarter or year_to_date")
	quartersCmd.Flags().StringVarP(&quarterScenario, "scenario", "s", string(data.Actuals), "scenario type of base metrics (Actuals or Budget)")
	quartersCmd.Flags().IntSliceVarP(&quarterYears, "year", "y", nil, "scenario years to report; all years when omitted")
}

func describeYears(years []int) string {
	if len(years) == 0 {
		return "all"
	}

	names := make([]string, len(years))
	for idx, year := range years {
		names[idx] = strconv.Itoa(year)
	}
	return strings.Join(names, ", ")
}
