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
package kpi

import (
	"context"
	"errors"
	"strconv"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/penny-vault/pvkpi/data"
	"github.com/penny-vault/pvkpi/sqlbuilder"
	"github.com/rs/zerolog/log"
)

// Engine generates KPI reports from the company, scenario and metric tables
type Engine struct {
	db pgxscan.Querier
}

// Scope narrows a report to a completeness window and, optionally, a set of
// scenario years. No years means every year.
type Scope struct {
	Window Window
	Years  []int
}

// FullYearScope reports full years across every scenario year
func FullYearScope() Scope {
	return Scope{Window: FullYear()}
}

func (scope Scope) yearNames() []string {
	years := make([]string, len(scope.Years))
	for idx, year := range scope.Years {
		years[idx] = strconv.Itoa(year)
	}
	return years
}

// NewEngine returns an engine that reads through db. Any pgx connection,
// pool or transaction satisfies pgxscan.Querier.
func NewEngine(db pgxscan.Querier) *Engine {
	return &Engine{db: db}
}

func (engine *Engine) fetch(ctx context.Context, op string, builder *sqlbuilder.Builder) ([]data.MetricRecord, error) {
	query, err := builder.Build()
	if err != nil {
		return nil, &ExecError{Op: op, Err: err}
	}

	log.Debug().Str("Operation", op).Str("SQL", query.SQL()).Msg("running metric query")

	records := []data.MetricRecord{}
	if err := pgxscan.Select(ctx, engine.db, &records, query.SQL(), query.Args()...); err != nil {
		return nil, &ExecError{Op: op, Query: query, Err: err}
	}

	return records, nil
}

// collapse turns a failed query into an empty report
func collapse(records []data.MetricRecord, err error) []data.MetricRecord {
	if err == nil {
		return records
	}

	var execErr *ExecError
	if errors.As(err, &execErr) {
		log.Error().Err(execErr.Err).Str("Operation", execErr.Op).Str("SQL", execErr.Query.SQL()).
			Msg("metric query failed, returning an empty report")
	} else {
		log.Error().Err(err).Msg("metric query failed, returning an empty report")
	}

	return []data.MetricRecord{}
}
