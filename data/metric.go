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

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Metric names reported by companies
const (
	Revenue                  = "Revenue"
	Ebitda                   = "Ebitda"
	CostOfGoods              = "Cost of goods"
	SalesAndMarketing        = "Sales & marketing"
	ResearchAndDevelopment   = "Research & development"
	GeneralAndAdministrative = "General & administrative"
	Headcount                = "Headcount"
	Debt                     = "Debt"
	Cash                     = "Cash"
	BeginningARR             = "Beginning ARR"
	Churn                    = "Churn"
	NetNewARR                = "Net new ARR"
	CustomerLifetimeValue    = "Customer lifetime value"
	CustomerAcquisitionCost  = "Customer acquisition cost"
)

// MetricNames is the vocabulary of stored metrics
var MetricNames = []string{
	Revenue,
	Ebitda,
	CostOfGoods,
	SalesAndMarketing,
	ResearchAndDevelopment,
	GeneralAndAdministrative,
	Headcount,
	Debt,
	Cash,
	BeginningARR,
	Churn,
	NetNewARR,
	CustomerLifetimeValue,
	CustomerAcquisitionCost,
}

// Metric is a single reported value of a company for one period
type Metric struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Value     decimal.Decimal `db:"value"`
	Type      string          `db:"type"`
	DataType  string          `db:"data_type"`
	PeriodID  string          `db:"period_id"`
	CompanyID string          `db:"company_id"`
}

func (metric *Metric) SaveDB(ctx context.Context, tx pgx.Tx) error {
	if metric.Name == "" || metric.CompanyID == "" {
		return nil
	}

	sql := `INSERT INTO metric (
		"id",
		"name",
		"value",
		"type",
		"data_type",
		"period_id",
		"company_id"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7
	) ON CONFLICT ON CONSTRAINT metric_pkey DO UPDATE SET
		value = EXCLUDED.value,
		type = EXCLUDED.type,
		data_type = EXCLUDED.data_type`

	_, err := tx.Exec(ctx, sql,
		metric.ID,
		metric.Name,
		metric.Value,
		metric.Type,
		metric.DataType,
		metric.PeriodID,
		metric.CompanyID,
	)

	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Object("Metric", metric).Msg("save metric to DB failed")
	}

	return err
}

func (metric *Metric) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ID", metric.ID)
	e.Str("Name", metric.Name)
	e.Str("CompanyID", metric.CompanyID)
	e.Str("Value", metric.Value.String())
}

// MetricRecord is one row of a KPI report: a metric value of a company for a
// scenario year and period class. Value is null when a calculated metric
// could not be computed, e.g. because its denominator is zero or missing.
type MetricRecord struct {
	CompanyID    string              `db:"company_id" json:"company_id"`
	Name         string              `db:"name" json:"name"`
	Scenario     string              `db:"scenario" json:"scenario"`
	Metric       string              `db:"metric" json:"metric"`
	Year         string              `db:"year" json:"year"`
	Period       string              `db:"period" json:"period"`
	Value        decimal.NullDecimal `db:"value" json:"value"`
	Total        decimal.NullDecimal `db:"total" json:"total"`
	Average      decimal.NullDecimal `db:"average" json:"average"`
	CountPeriods int                 `db:"count_periods" json:"count_periods"`

	// FullYearAverage is only reported for base metrics
	FullYearAverage decimal.NullDecimal `db:"full_year_average" json:"full_year_average"`
}

func (record *MetricRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CompanyID", record.CompanyID)
	e.Str("Scenario", record.Scenario)
	e.Str("Metric", record.Metric)
	e.Str("Period", record.Period)
	if record.Value.Valid {
		e.Str("Value", record.Value.Decimal.String())
	}
}
