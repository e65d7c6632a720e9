// Copyright 2025
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
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/windborne/finetl/data"
	"github.com/windborne/finetl/store"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed <companies.csv>",
	Short: "Load the company universe from a CSV file",
	Long: `The seed sub-command inserts or updates the company universe from a CSV
file with the columns symbol,name,sector,industry,priority. Seeding is
matched on symbol: an existing company keeps its id and its statement
history; only its descriptive fields and priority are updated.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		csvFile, err := os.Open(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not open companies csv")
		}
		defer csvFile.Close()

		var companies []*data.Company
		if err := gocsv.Unmarshal(csvFile, &companies); err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not parse companies csv")
		}

		for _, company := range companies {
			company.Symbol = strings.ToUpper(strings.TrimSpace(company.Symbol))
			if company.Symbol == "" {
				log.Fatal().Str("FileName", args[0]).Msg("company row with empty symbol")
			}
		}

		myStore, err := store.New(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		if err := myStore.SeedCompanies(ctx, companies); err != nil {
			log.Fatal().Err(err).Msg("could not seed companies")
		}

		log.Info().Int("NumCompanies", len(companies)).Msg("company universe seeded")
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
