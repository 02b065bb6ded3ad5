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
	"fmt"
	"strings"

	"github.com/penny-vault/pvkpi/filter"
	"github.com/penny-vault/pvkpi/kpi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listQuarters bool

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics [key]",
	Short: "List all metrics available or get details about a specific metric",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		builder := strings.Builder{}

		lookup := kpi.LookupByMetric
		catalog := kpi.ByMetricCatalog
		scope := kpi.FullYearScope()
		if listQuarters {
			lookup = kpi.LookupQuarters
			catalog = kpi.QuartersCatalog
			window, _ := kpi.Quarter("Q4")
			scope = kpi.Scope{Window: window}
		}

		if len(args) > 0 {
			definition, err := lookup(args[0])
			if err != nil {
				log.Fatal().Err(err).Str("Metric", args[0]).Msg("unknown metric")
			}

			builder.WriteString(fmt.Sprintf("# %s\n\n", definition.Label()))
			builder.WriteString(fmt.Sprintf("  * Key: %s\n", definition.Key))
			builder.WriteString(fmt.Sprintf("  * Kind: %s\n", definition.Kind))
			builder.WriteString(fmt.Sprintf("  * Scenario: %s\n", definition.Scenario))
			if definition.Kind == kpi.KindBase {
				builder.WriteString(fmt.Sprintf("  * Metric: %s\n", definition.Metric))
			} else {
				builder.WriteString(fmt.Sprintf("  * Anchor: %s\n", definition.Calculation.Anchor))
				for _, term := range definition.Calculation.Terms {
					builder.WriteString(fmt.Sprintf("  * Term: %s\n", term.Metric))
				}
			}

			query, err := definition.Query(scope, filter.None())
			if err != nil {
				log.Fatal().Err(err).Str("Metric", args[0]).Msg("could not build query")
			}
			builder.WriteString(fmt.Sprintf("\n## Query\n\n```sql\n%s\n```\n", query.SQL()))
		} else {
			builder.WriteString("# Available Metrics\n\n")
			builder.WriteString("| Key | Kind | Metric | Scenario |\n")
			builder.WriteString("|---|---|---|---|\n")
			for _, definition := range catalog() {
				builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
					definition.Key, definition.Kind, escapeCell(definition.Label()), definition.Scenario))
			}
		}

		out, err := newRenderer().Render(builder.String())
		if err != nil {
			log.Fatal().Err(err).Msg("could not render metrics document")
		}

		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().BoolVarP(&listQuarters, "quarters", "q", false, "use the quarterly report catalog")
}
