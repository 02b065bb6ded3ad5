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
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/kpi"
)

type Library struct {
	DBUrl string
	Name  string
	Owner string

	Pool *pgxpool.Pool `toml:"-"`
}

// ScenarioCount is the number of scenarios of a type
type ScenarioCount struct {
	Type  string `db:"type"`
	Count int    `db:"count"`
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myLibrary.DBUrl)
	if err != nil {
		return err
	}
	myLibrary.Pool = pool

	return nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	if myLibrary.Pool != nil {
		myLibrary.Pool.Close()
	}
}

// NewFromDB creates a new library object with values from the database
func NewFromDB(ctx context.Context, dbURL string) (*Library, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	myLibrary := Library{
		DBUrl: dbURL,
		Pool:  pool,
	}

	if err := pool.QueryRow(ctx, "SELECT name, owner FROM library LIMIT 1").Scan(&myLibrary.Name, &myLibrary.Owner); err != nil {
		pool.Close()
		return nil, err
	}

	return &myLibrary, nil
}

// SaveDB creates a new record in the library table for this library
func (myLibrary *Library) SaveDB(ctx context.Context) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `INSERT INTO library ("name", "owner") VALUES ($1, $2)`, myLibrary.Name, myLibrary.Owner)
	return err
}

// Engine returns a KPI engine reading from the library's pool
func (myLibrary *Library) Engine() *kpi.Engine {
	return kpi.NewEngine(myLibrary.Pool)
}

// NumCompanies returns the number of companies in the library
func (myLibrary *Library) NumCompanies(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM company").Scan(&count)
	return count, err
}

// NumMetrics returns the number of metric values in the library
func (myLibrary *Library) NumMetrics(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM metric").Scan(&count)
	return count, err
}

// ScenarioCounts returns the number of scenarios per scenario type
func (myLibrary *Library) ScenarioCounts(ctx context.Context) ([]*ScenarioCount, error) {
	var counts []*ScenarioCount
	err := pgxscan.Select(ctx, myLibrary.Pool, &counts,
		"SELECT type, count(*) AS count FROM financial_scenario GROUP BY type ORDER BY type")
	return counts, err
}

// Years returns every scenario year in the library in ascending order
func (myLibrary *Library) Years(ctx context.Context) ([]string, error) {
	var years []string
	err := pgxscan.Select(ctx, myLibrary.Pool, &years,
		`SELECT DISTINCT substring(name from position('-' in name) + 1) AS year
FROM financial_scenario ORDER BY year`)
	return years, err
}

// LastUpdated returns the date that the database was last updated
func (myLibrary *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	var lastUpdated time.Time
	err := myLibrary.Pool.QueryRow(ctx,
		"SELECT coalesce(max(last_updated), '0001-01-01'::timestamp) FROM financial_scenario").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}

	return lastUpdated, nil
}

// ValueRanges returns the classification ranges in the library ordered by type and lower bound
func (myLibrary *Library) ValueRanges(ctx context.Context) ([]*data.ValueRange, error) {
	var ranges []*data.ValueRange
	err := pgxscan.Select(ctx, myLibrary.Pool, &ranges,
		"SELECT id, label, min_value, max_value, type FROM value_range ORDER BY type, min_value NULLS FIRST")
	return ranges, err
}

// Clear removes every company, scenario and metric from the library
func (myLibrary *Library) Clear(ctx context.Context) error {
	_, err := myLibrary.Pool.Exec(ctx, "TRUNCATE company, tag, time_period CASCADE")
	return err
}
