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

	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/windborne/finetl/data"
	"github.com/windborne/finetl/etl"
	"github.com/windborne/finetl/provider"
	"github.com/windborne/finetl/store"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ETL pipeline invocation",
	Long: `The run sub-command executes one full pipeline invocation across the
configured company universe: fetch statements from the provider, normalize
them, load them, derive ratios, and record the run summary. Companies are
processed sequentially in priority order; a single company's failure never
aborts the run.

The exit code is 0 only when the run finishes with status SUCCESS.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		requireCredentials()

		myStore, err := store.New(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		fetcher := provider.NewAlphaVantage(providerConfig())
		pipeline := etl.NewPipeline(pipelineConfig(), fetcher, myStore)

		run, err := pipeline.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("pipeline returned an error")
		}

		log.Info().Str("RunTime", durafmt.Parse(run.ExecutionTime).String()).
			Str("Status", string(run.Status)).Int("CompaniesProcessed", run.CompaniesProcessed).
			Msg("run finished")

		if run.Status != data.RunSuccess {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
