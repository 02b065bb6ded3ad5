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
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrInvalidScenarioType = errors.New("invalid scenario type")
	ErrInvalidScenarioName = errors.New("invalid scenario name")
	ErrInvalidPeriod       = errors.New("invalid period")
)

type ScenarioType string

const (
	Actuals ScenarioType = "Actuals"
	Budget  ScenarioType = "Budget"
)

// ScenarioTypes lists every supported scenario type
var ScenarioTypes = []ScenarioType{Actuals, Budget}

const (
	// FullYear names a period covering the whole year
	FullYear = "Full-year"

	// Quarters is the period class of metrics reported per quarter
	Quarters = "Quarters"
)

// QuarterNames lists the quarter periods in canonical order
var QuarterNames = []string{"Q1", "Q2", "Q3", "Q4"}

// PeriodNames lists every period name a metric may be reported for
var PeriodNames = append([]string{FullYear}, QuarterNames...)

// ParseScenarioType matches s case-insensitively against the known scenario types
func ParseScenarioType(s string) (ScenarioType, error) {
	for _, scenarioType := range ScenarioTypes {
		if strings.EqualFold(s, string(scenarioType)) {
			return scenarioType, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidScenarioType, s)
}

// Key is the lower-case form used in catalog keys
func (scenarioType ScenarioType) Key() string {
	return strings.ToLower(string(scenarioType))
}

// ScenarioName returns the name of the scenario of this type for year, e.g. Actuals-2021
func (scenarioType ScenarioType) ScenarioName(year int) string {
	return fmt.Sprintf("%s-%d", scenarioType, year)
}

// ScenarioYear extracts the year from a scenario name (the text after the dash)
func ScenarioYear(name string) (int, error) {
	idx := strings.Index(name, "-")
	if idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScenarioName, name)
	}

	year, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScenarioName, name)
	}

	return year, nil
}

// QuarterIndex returns the zero-based position of a quarter name or -1
func QuarterIndex(period string) int {
	return slices.Index(QuarterNames, period)
}

// ValidatePeriod makes sure period is Full-year or one of the quarters
func ValidatePeriod(period string) error {
	if !slices.Contains(PeriodNames, period) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return nil
}
