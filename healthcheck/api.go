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
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrStatus  = errors.New("status code is invalid")
	ErrCheckID = errors.New("health check id is empty")
)

// DefaultPingURL is the healthchecks.io ping endpoint
const DefaultPingURL = "https://hc-ping.com"

// Monitor reports the outcome of a job to a healthchecks.io check
type Monitor struct {
	BaseURL string
	CheckID string

	client *resty.Client
}

// NewMonitor returns a monitor for checkID; an empty baseURL uses healthchecks.io
func NewMonitor(baseURL, checkID string) *Monitor {
	if baseURL == "" {
		baseURL = DefaultPingURL
	}

	return &Monitor{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		CheckID: checkID,
		client:  resty.New(),
	}
}

// Start signals the job began
func (monitor *Monitor) Start(ctx context.Context) error {
	return monitor.ping(ctx, "/start", "")
}

// Success signals the job finished; msg is attached to the ping
func (monitor *Monitor) Success(ctx context.Context, msg string) error {
	return monitor.ping(ctx, "", msg)
}

// Fail signals the job failed with err
func (monitor *Monitor) Fail(ctx context.Context, err error) error {
	return monitor.ping(ctx, "/fail", err.Error())
}

func (monitor *Monitor) ping(ctx context.Context, suffix, body string) error {
	if monitor.CheckID == "" {
		return ErrCheckID
	}

	url := fmt.Sprintf("%s/%s%s", monitor.BaseURL, monitor.CheckID, suffix)
	resp, err := monitor.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(body).
		Post(url)
	if err != nil {
		log.Error().Err(err).Str("URL", url).Msg("health check ping failed")
		return err
	}

	if resp.StatusCode() > 201 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
