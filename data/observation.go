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
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Observation is one flat row of a seed file: a metric value of a company
// together with the company attributes and the scenario it belongs to
type Observation struct {
	CompanyID       string `csv:"company_id"`
	CompanyName     string `csv:"company_name"`
	Sector          string `csv:"sector"`
	Vertical        string `csv:"vertical"`
	InvestorProfile string `csv:"investor_profile"`
	IsPublic        bool   `csv:"is_public"`
	Tags            string `csv:"tags"`
	ScenarioType    string `csv:"scenario_type"`
	Year            int    `csv:"year"`
	Period          string `csv:"period"`
	Currency        string `csv:"currency"`
	Metric          string `csv:"metric"`
	Value           string `csv:"value"`
}

// TagNames splits the semicolon separated tag list
func (obs *Observation) TagNames() []string {
	tags := make([]string, 0, 2)
	for _, tag := range strings.Split(obs.Tags, ";") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Parse validates the observation and returns its scenario type and value
func (obs *Observation) Parse() (ScenarioType, decimal.Decimal, error) {
	if obs.CompanyID == "" || obs.Metric == "" {
		return "", decimal.Zero, fmt.Errorf("observation is missing company or metric")
	}

	scenarioType, err := ParseScenarioType(obs.ScenarioType)
	if err != nil {
		return "", decimal.Zero, err
	}

	if err := ValidatePeriod(obs.Period); err != nil {
		return "", decimal.Zero, err
	}

	value, err := decimal.NewFromString(strings.TrimSpace(obs.Value))
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid value %q for %s: %w", obs.Value, obs.Metric, err)
	}

	return scenarioType, value, nil
}
