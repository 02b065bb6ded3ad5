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
	"errors"
	"fmt"

	"github.com/penny-vault/pvkpi/sqlbuilder"
)

var (
	ErrMetricNotFound     = errors.New("Metric not found")
	ErrInvalidReportType  = errors.New("invalid report type")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidScenario    = errors.New("invalid scenario")
	ErrInvalidCalculation = errors.New("invalid calculation")
)

// ExecError is returned when a metric query could not be built or executed.
// Public generators log it and report an empty result instead.
type ExecError struct {
	Op    string
	Query sqlbuilder.Query
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
