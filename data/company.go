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
)

// Company is an entity that reports financial scenarios. Size cohort and
// margin group are assigned elsewhere from computed metrics and are not stored.
type Company struct {
	ID                  string `db:"id"`
	Name                string `db:"name"`
	Sector              string `db:"sector"`
	Vertical            string `db:"vertical"`
	InvestorProfileName string `db:"investor_profile_name"`
	IsPublic            bool   `db:"is_public"`
}

func (company *Company) SaveDB(ctx context.Context, tx pgx.Tx) error {
	if company.ID == "" {
		return nil
	}

	sql := `INSERT INTO company (
		"id",
		"name",
		"sector",
		"vertical",
		"investor_profile_name",
		"is_public"
	) VALUES (
		$1, $2, $3, $4, $5, $6
	) ON CONFLICT ON CONSTRAINT company_pkey DO UPDATE SET
		name = EXCLUDED.name,
		sector = EXCLUDED.sector,
		vertical = EXCLUDED.vertical,
		investor_profile_name = EXCLUDED.investor_profile_name,
		is_public = EXCLUDED.is_public`

	_, err := tx.Exec(ctx, sql, company.ID, company.Name, company.Sector, company.Vertical,
		company.InvestorProfileName, company.IsPublic)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Object("Company", company).Msg("save company to DB failed")
	}

	return err
}

func (company *Company) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ID", company.ID)
	e.Str("Name", company.Name)
	e.Str("Sector", company.Sector)
}

// Tag is a free-form label attached to companies
type Tag struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func (tag *Tag) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO tag ("id", "name") VALUES ($1, $2)
	ON CONFLICT ON CONSTRAINT tag_pkey DO UPDATE SET name = EXCLUDED.name`

	_, err := tx.Exec(ctx, sql, tag.ID, tag.Name)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("Tag", tag.Name).Msg("save tag to DB failed")
	}

	return err
}

// CompanyTag links a company to a tag
type CompanyTag struct {
	CompanyID string `db:"company_id"`
	TagID     string `db:"tag_id"`
}

func (companyTag *CompanyTag) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO company_tag ("company_id", "tag_id") VALUES ($1, $2)
	ON CONFLICT ON CONSTRAINT company_tag_pkey DO NOTHING`

	_, err := tx.Exec(ctx, sql, companyTag.CompanyID, companyTag.TagID)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("CompanyID", companyTag.CompanyID).
			Str("TagID", companyTag.TagID).Msg("save company tag to DB failed")
	}

	return err
}
