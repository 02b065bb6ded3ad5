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
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvkpi/db"
	"github.com/penny-vault/pvkpi/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup schema",
	Long: `init asks for the name and owner of the metrics library and the DSN of
its PostgreSQL database, creates the company, scenario and metric tables and
saves the connection settings to $HOME/.pvkpi.toml.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myLibrary := &library.Library{}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Give the library a name:").
					Value(&myLibrary.Name),

				huh.NewInput().
					Title("Who owns the library?").
					Value(&myLibrary.Owner),
			),

			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&myLibrary.DBUrl).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		log.Info().Msg("creating database tables")
		if err := db.Migrate(myLibrary.DBUrl); err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("saving library name and owner to database")
		if err := myLibrary.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myLibrary.Close()

		if err := myLibrary.SaveDB(ctx); err != nil {
			log.Fatal().Err(err).Msg("error saving library settings to database")
		}

		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".pvkpi.toml")
		log.Info().Str("ConfigFile", configFN).Msg("saving database connection info to config file")
		configData, err := toml.Marshal(myLibrary)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		if err := os.WriteFile(configFN, configData, 0600); err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("your metrics library has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
