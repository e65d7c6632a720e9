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

	"github.com/windborne/finetl/api"
	"github.com/windborne/finetl/etl"
	"github.com/windborne/finetl/provider"
	"github.com/windborne/finetl/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP control surface",
	Long: `The serve sub-command exposes the pipeline to the workflow scheduler:
POST /run-etl synchronously executes one pipeline invocation and returns
its summary, GET /status returns the most recent run, and GET /health is a
liveness probe independent of pipeline state.`,
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

		server := api.NewServer(pipeline, myStore)
		if err := server.ListenAndServe(viper.GetString("server.address")); err != nil {
			log.Fatal().Err(err).Msg("control surface stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
