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
	"time"

	"github.com/hako/durafmt"
	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/filter"
	"github.com/penny-vault/pvkpi/kpi"
	"github.com/penny-vault/pvkpi/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <metric>",
	Short: "Report a metric for every company and complete year",
	Long: `report computes a catalog metric, e.g. actuals_revenue or gross_margin, for
every company matching the filters. A company's year is reported from its
Full-year value or from all four quarters; years with fewer quarters are left
out.

Filters restrict the companies: sector, vertical, investor_profile, tag and
company. Repeat --filter to combine attributes; separate values with commas.

Also see: metrics, quarters`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		filters, err := parseFilters(reportFilters)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid filter")
		}

		definition, err := kpi.LookupByMetric(args[0])
		if err != nil {
			fmt.Printf("Metric '%s' doesn't exist.\n", args[0])
			fmt.Println("Run `pvkpi metrics` for a complete list of available metrics")
			os.Exit(1)
		}

		if explain {
			printQuery(definition, kpi.FullYearScope(), filters)
			return
		}

		if !outputCSV && !outputJSON {
			fmt.Println(reportHeader(definition.Label(), [][2]string{
				{"Metric", definition.Key},
				{"Kind", definition.Kind.String()},
				{"Companies", describeFilters(filters)},
			}))
		}

		records := runReport(ctx, func(engine *kpi.Engine) ([]data.MetricRecord, error) {
			return engine.MetricRecords(ctx, args[0], filters)
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
	rootCmd.AddCommand(reportCmd)
	addReportFlags(reportCmd)
}

// runReport connects to the library, runs fn against its engine and logs how long it took
func runReport(ctx context.Context, fn func(*kpi.Engine) ([]data.MetricRecord, error)) []data.MetricRecord {
	myLibrary, err := library.NewFromDB(ctx, viper.GetString("DBUrl"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to library")
	}
	defer myLibrary.Close()

	startTime := time.Now()
	records, err := fn(myLibrary.Engine())
	if err != nil {
		log.Fatal().Err(err).Msg("report request rejected")
	}

	log.Info().Str("RunTime", durafmt.Parse(time.Since(startTime)).String()).Int("NumRecords", len(records)).Msg("report complete")

	return records
}

func printQuery(definition kpi.Definition, scope kpi.Scope, filters filter.Filters) {
	query, err := definition.Query(scope, filters)
	if err != nil {
		log.Fatal().Err(err).Str("Metric", definition.Key).Msg("could not build query")
	}

	fmt.Println(query.SQL())
	for idx, arg := range query.Args() {
		fmt.Printf("-- $%d = %v\n", idx+1, arg)
	}
}
