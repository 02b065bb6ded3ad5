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
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FinancialScenario is one (type, year) instance of a company's financials.
// Name is always "<Type>-<Year>".
type FinancialScenario struct {
	ID          string       `db:"id"`
	Name        string       `db:"name"`
	Type        ScenarioType `db:"type"`
	Currency    string       `db:"currency"`
	CompanyID   string       `db:"company_id"`
	PeriodID    string       `db:"period_id"`
	LastUpdated time.Time    `db:"last_updated"`
}

// Validate checks that the year encoded in the scenario name matches the
// year of the scenario's period
func (scenario *FinancialScenario) Validate(period *TimePeriod) error {
	year, err := ScenarioYear(scenario.Name)
	if err != nil {
		return err
	}

	if period != nil && period.StartAt.Year() != year {
		return fmt.Errorf("%w: %q does not match period year %d", ErrInvalidScenarioName, scenario.Name, period.StartAt.Year())
	}

	if scenario.Name != scenario.Type.ScenarioName(year) {
		return fmt.Errorf("%w: %q is not a %s scenario", ErrInvalidScenarioName, scenario.Name, scenario.Type)
	}

	return nil
}

func (scenario *FinancialScenario) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO financial_scenario (
		"id",
		"name",
		"type",
		"currency",
		"company_id",
		"period_id",
		"last_updated"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7
	) ON CONFLICT ON CONSTRAINT financial_scenario_pkey DO UPDATE SET
		currency = EXCLUDED.currency,
		last_updated = EXCLUDED.last_updated`

	_, err := tx.Exec(ctx, sql, scenario.ID, scenario.Name, string(scenario.Type), scenario.Currency,
		scenario.CompanyID, scenario.PeriodID, scenario.LastUpdated)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Object("Scenario", scenario).Msg("save scenario to DB failed")
	}

	return err
}

func (scenario *FinancialScenario) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ID", scenario.ID)
	e.Str("Name", scenario.Name)
	e.Str("CompanyID", scenario.CompanyID)
}

// ScenarioMetric attaches a metric row to the scenario it was reported in
type ScenarioMetric struct {
	ID         string `db:"id"`
	ScenarioID string `db:"scenario_id"`
	MetricID   string `db:"metric_id"`
}

func (scenarioMetric *ScenarioMetric) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO scenario_metric ("id", "scenario_id", "metric_id") VALUES ($1, $2, $3)
	ON CONFLICT ON CONSTRAINT scenario_metric_metric_id_key DO UPDATE SET
		scenario_id = EXCLUDED.scenario_id`

	_, err := tx.Exec(ctx, sql, scenarioMetric.ID, scenarioMetric.ScenarioID, scenarioMetric.MetricID)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("MetricID", scenarioMetric.MetricID).Msg("save scenario metric to DB failed")
	}

	return err
}
