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
package db

import (
	"embed"
	"errors"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrateURL rewrites a postgres DSN to the scheme the pgx/v5 migration driver registers
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

func newMigration(databaseURL string) (*migrate.Migrate, error) {
	migrationDir, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}

	return migrate.NewWithSourceInstance("iofs", migrationDir, migrateURL(databaseURL))
}

// Migrate brings the company, scenario and metric schema up to date
func Migrate(databaseURL string) error {
	migration, err := newMigration(databaseURL)
	if err != nil {
		return err
	}
	defer migration.Close()

	err = migration.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("database schema is up to date")
		return nil
	}

	return err
}

// Version reports the applied schema version and whether the last migration
// left the schema dirty
func Version(databaseURL string) (uint, bool, error) {
	migration, err := newMigration(databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer migration.Close()

	version, dirty, err := migration.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}

// LatestVersion is the newest schema version embedded in the binary
func LatestVersion() (uint, error) {
	migrationDir, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, err
	}
	defer migrationDir.Close()

	version, err := migrationDir.First()
	if err != nil {
		return 0, err
	}

	for {
		next, err := migrationDir.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, err
		}
		version = next
	}
}
