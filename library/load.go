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
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/penny-vault/pvkpi/data"
	"github.com/rs/zerolog/log"
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/penny-vault/pvkpi"))

// StableID derives a deterministic id from parts so reloading the same
// observations updates rows instead of duplicating them
func StableID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "/"))).String()
}

// LoadStats counts what a load wrote
type LoadStats struct {
	Companies int
	Scenarios int
	Metrics   int
	Skipped   int
}

type loader struct {
	tx    pgx.Tx
	now   time.Time
	stats LoadStats

	companies map[string]bool
	tags      map[string]bool
	periods   map[string]bool
	scenarios map[string]bool
}

// Load writes observations into the normalized schema in a single
// transaction. Invalid observations are logged and skipped; any database
// error rolls the whole load back.
func (myLibrary *Library) Load(ctx context.Context, observations []*data.Observation) (LoadStats, error) {
	tx, err := myLibrary.Pool.Begin(ctx)
	if err != nil {
		return LoadStats{}, err
	}

	stats, err := LoadObservations(ctx, tx, observations)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Msg("rollback of observation load failed")
		}
		return stats, err
	}

	return stats, tx.Commit(ctx)
}

// LoadObservations writes observations using tx; the caller owns the transaction
func LoadObservations(ctx context.Context, tx pgx.Tx, observations []*data.Observation) (LoadStats, error) {
	myLoader := &loader{
		tx:        tx,
		now:       time.Now(),
		companies: make(map[string]bool),
		tags:      make(map[string]bool),
		periods:   make(map[string]bool),
		scenarios: make(map[string]bool),
	}

	for _, obs := range observations {
		if err := myLoader.save(ctx, obs); err != nil {
			var skip *skipError
			if errors.As(err, &skip) {
				log.Warn().Err(skip.err).Str("CompanyID", obs.CompanyID).Str("Metric", obs.Metric).
					Int("Year", obs.Year).Str("Period", obs.Period).Msg("skipping invalid observation")
				myLoader.stats.Skipped++
				continue
			}
			return myLoader.stats, err
		}
	}

	return myLoader.stats, nil
}

type skipError struct {
	err error
}

func (e *skipError) Error() string {
	return e.err.Error()
}

func (myLoader *loader) save(ctx context.Context, obs *data.Observation) error {
	scenarioType, value, err := obs.Parse()
	if err != nil {
		return &skipError{err: err}
	}

	if err := myLoader.saveCompany(ctx, obs); err != nil {
		return err
	}

	scenarioPeriod, err := myLoader.savePeriod(ctx, obs.Year, data.FullYear)
	if err != nil {
		return err
	}

	scenario := &data.FinancialScenario{
		ID:          StableID("scenario", obs.CompanyID, scenarioType.ScenarioName(obs.Year)),
		Name:        scenarioType.ScenarioName(obs.Year),
		Type:        scenarioType,
		Currency:    obs.Currency,
		CompanyID:   obs.CompanyID,
		PeriodID:    scenarioPeriod.ID,
		LastUpdated: myLoader.now,
	}

	if scenario.Currency == "" {
		scenario.Currency = "USD"
	}

	if err := scenario.Validate(scenarioPeriod); err != nil {
		return &skipError{err: err}
	}

	if !myLoader.scenarios[scenario.ID] {
		if err := scenario.SaveDB(ctx, myLoader.tx); err != nil {
			return err
		}
		myLoader.scenarios[scenario.ID] = true
		myLoader.stats.Scenarios++
	}

	metricPeriod, err := myLoader.savePeriod(ctx, obs.Year, obs.Period)
	if err != nil {
		return err
	}

	metric := &data.Metric{
		ID:        StableID("metric", obs.CompanyID, scenario.Name, obs.Period, obs.Metric),
		Name:      obs.Metric,
		Value:     value,
		Type:      string(scenarioType),
		DataType:  "numeric",
		PeriodID:  metricPeriod.ID,
		CompanyID: obs.CompanyID,
	}

	if err := metric.SaveDB(ctx, myLoader.tx); err != nil {
		return err
	}

	link := &data.ScenarioMetric{
		ID:         StableID("scenario_metric", metric.ID),
		ScenarioID: scenario.ID,
		MetricID:   metric.ID,
	}

	if err := link.SaveDB(ctx, myLoader.tx); err != nil {
		return err
	}

	myLoader.stats.Metrics++
	return nil
}

func (myLoader *loader) saveCompany(ctx context.Context, obs *data.Observation) error {
	if myLoader.companies[obs.CompanyID] {
		return nil
	}

	company := &data.Company{
		ID:                  obs.CompanyID,
		Name:                obs.CompanyName,
		Sector:              obs.Sector,
		Vertical:            obs.Vertical,
		InvestorProfileName: obs.InvestorProfile,
		IsPublic:            obs.IsPublic,
	}

	if company.Name == "" {
		company.Name = obs.CompanyID
	}

	if err := company.SaveDB(ctx, myLoader.tx); err != nil {
		return err
	}

	for _, name := range obs.TagNames() {
		tag := &data.Tag{ID: StableID("tag", name), Name: name}
		if !myLoader.tags[tag.ID] {
			if err := tag.SaveDB(ctx, myLoader.tx); err != nil {
				return err
			}
			myLoader.tags[tag.ID] = true
		}

		companyTag := &data.CompanyTag{CompanyID: company.ID, TagID: tag.ID}
		if err := companyTag.SaveDB(ctx, myLoader.tx); err != nil {
			return err
		}
	}

	myLoader.companies[obs.CompanyID] = true
	myLoader.stats.Companies++

	return nil
}

func (myLoader *loader) savePeriod(ctx context.Context, year int, period string) (*data.TimePeriod, error) {
	timePeriod, err := data.NewTimePeriod(StableID("period", strconv.Itoa(year), period), year, period)
	if err != nil {
		return nil, &skipError{err: err}
	}

	if myLoader.periods[timePeriod.ID] {
		return timePeriod, nil
	}

	if err := timePeriod.SaveDB(ctx, myLoader.tx); err != nil {
		return nil, err
	}
	myLoader.periods[timePeriod.ID] = true

	return timePeriod, nil
}
