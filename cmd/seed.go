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
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/gocarina/gocsv"
	"github.com/hako/durafmt"
	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/healthcheck"
	"github.com/penny-vault/pvkpi/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	seedReplace     bool
	seedYes         bool
	seedHealthCheck string
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed <observations.csv>",
	Short: "Load company metrics from a CSV file",
	Long: `seed loads a flat CSV of observations into the library. Each row holds one
metric value with the company it belongs to and the scenario it was reported
in:

    company_id,company_name,sector,vertical,investor_profile,is_public,tags,
    scenario_type,year,period,currency,metric,value

Tags are separated by semicolons. Rows are written in a single transaction;
invalid rows are skipped and logged. Loading the same file twice updates the
existing rows.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		fh, err := os.Open(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not open observations file")
		}
		defer fh.Close()

		var observations []*data.Observation
		if err := gocsv.UnmarshalFile(fh, &observations); err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not parse observations file")
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("DBUrl"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		if seedReplace {
			confirmed := seedYes
			if !confirmed {
				confirmForm := huh.NewForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title("Remove every company, scenario and metric before loading?").
							Value(&confirmed),
					),
				)

				if err := confirmForm.Run(); err != nil {
					log.Fatal().Err(err).Msg("failed to create wizard")
				}
			}

			if !confirmed {
				log.Info().Msg("not loading observations")
				return
			}

			if err := myLibrary.Clear(ctx); err != nil {
				log.Fatal().Err(err).Msg("could not clear library")
			}
		}

		var monitor *healthcheck.Monitor
		if checkID := viper.GetString("healthchecks.seed_check"); checkID != "" {
			monitor = healthcheck.NewMonitor(viper.GetString("healthchecks.url"), checkID)
			if err := monitor.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("could not signal seed start to health check")
			}
		}

		startTime := time.Now()
		stats, err := myLibrary.Load(ctx, observations)
		if err != nil {
			if monitor != nil {
				if pingErr := monitor.Fail(ctx, err); pingErr != nil {
					log.Warn().Err(pingErr).Msg("could not signal seed failure to health check")
				}
			}
			log.Fatal().Err(err).Msg("loading observations failed, nothing was saved")
		}

		p := message.NewPrinter(language.English)
		if monitor != nil {
			summary := p.Sprintf("loaded %d metrics for %d companies, skipped %d rows", stats.Metrics, stats.Companies, stats.Skipped)
			if err := monitor.Success(ctx, summary); err != nil {
				log.Warn().Err(err).Msg("could not signal seed success to health check")
			}
		}

		log.Info().
			Str("RunTime", durafmt.Parse(time.Since(startTime)).String()).
			Str("Companies", p.Sprintf("%d", stats.Companies)).
			Str("Scenarios", p.Sprintf("%d", stats.Scenarios)).
			Str("Metrics", p.Sprintf("%d", stats.Metrics)).
			Int("Skipped", stats.Skipped).
			Msg("observations loaded")
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedReplace, "replace", false, "remove existing companies, scenarios and metrics first")
	seedCmd.Flags().BoolVarP(&seedYes, "yes", "y", false, "do not ask for confirmation")

	seedCmd.Flags().StringVar(&seedHealthCheck, "healthcheck", "", "healthchecks.io check to ping with the outcome of the load")
	if err := viper.BindPFlag("healthchecks.seed_check", seedCmd.Flags().Lookup("healthcheck")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for healthcheck failed")
	}
}
