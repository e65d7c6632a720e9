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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/windborne/finetl/etl"
	"github.com/windborne/finetl/store"
)

// recalcCmd represents the recalc command
var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recompute the metric catalogue from stored statements",
	Long: `The recalc sub-command derives the full ratio catalogue for every
company and fiscal year already present in financial_statements, without
touching the provider. Useful after a formula change or when metrics were
skipped because a run aborted between loading and calculating.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myStore, err := store.New(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		companies, err := myStore.Companies(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list companies")
		}

		calculator := etl.NewCalculator()

		for _, company := range companies {
			years, err := myStore.StatementYears(ctx, company.ID)
			if err != nil {
				log.Error().Err(err).Str("Symbol", company.Symbol).Msg("could not list statement years")
				continue
			}

			total := 0

			for _, year := range years {
				values, err := myStore.StatementValues(ctx, company.ID, year)
				if err != nil {
					log.Error().Err(err).Str("Symbol", company.Symbol).Int("FiscalYear", year).
						Msg("could not load statement values")
					continue
				}

				prev, err := myStore.StatementValues(ctx, company.ID, year-1)
				if err != nil {
					log.Error().Err(err).Str("Symbol", company.Symbol).Int("FiscalYear", year-1).
						Msg("could not load prior-year values")
					prev = nil
				}

				if len(prev) == 0 {
					prev = nil
				}

				metrics, qualities := calculator.Calculate(company, year, values, prev)
				for _, quality := range qualities {
					log.Warn().Str("Symbol", quality.Symbol).Int("FiscalYear", quality.FiscalYear).
						Str("Field", quality.Field).Msg(quality.Reason)
				}

				if err := myStore.UpsertMetrics(ctx, metrics); err != nil {
					log.Error().Err(err).Str("Symbol", company.Symbol).Int("FiscalYear", year).
						Msg("could not save metrics")
					continue
				}

				total += len(metrics)
			}

			log.Info().Str("Symbol", company.Symbol).Int("Metrics", total).Msg("recalculated metrics")
		}
	},
}

func init() {
	rootCmd.AddCommand(recalcCmd)
}
