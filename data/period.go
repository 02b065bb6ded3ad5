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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimePeriod is the date range a scenario or metric covers. Period is
// Full-year, Q1..Q4 or empty for unnamed ranges.
type TimePeriod struct {
	ID      string    `db:"id"`
	StartAt time.Time `db:"start_at"`
	EndAt   time.Time `db:"end_at"`
	Period  string    `db:"period"`
}

// NewTimePeriod returns the calendar range of period in year. An empty period
// covers the whole year without being named.
func NewTimePeriod(id string, year int, period string) (*TimePeriod, error) {
	timePeriod := &TimePeriod{
		ID:     id,
		Period: period,
	}

	switch period {
	case "", FullYear:
		timePeriod.StartAt = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		timePeriod.EndAt = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		idx := QuarterIndex(period)
		if idx < 0 {
			return nil, ErrInvalidPeriod
		}

		timePeriod.StartAt = time.Date(year, time.Month(idx*3+1), 1, 0, 0, 0, 0, time.UTC)
		timePeriod.EndAt = timePeriod.StartAt.AddDate(0, 3, -1)
	}

	return timePeriod, nil
}

func (timePeriod *TimePeriod) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO time_period (
		"id",
		"start_at",
		"end_at",
		"period"
	) VALUES (
		$1, $2, $3, NULLIF($4, '')
	) ON CONFLICT ON CONSTRAINT time_period_pkey DO UPDATE SET
		start_at = EXCLUDED.start_at,
		end_at = EXCLUDED.end_at,
		period = EXCLUDED.period`

	_, err := tx.Exec(ctx, sql, timePeriod.ID, timePeriod.StartAt, timePeriod.EndAt, timePeriod.Period)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Object("TimePeriod", timePeriod).Msg("save time period to DB failed")
	}

	return err
}

func (timePeriod *TimePeriod) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ID", timePeriod.ID)
	e.Str("Period", timePeriod.Period)
	e.Time("StartAt", timePeriod.StartAt)
	e.Time("EndAt", timePeriod.EndAt)
}
