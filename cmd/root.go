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
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/windborne/finetl/etl"
	"github.com/windborne/finetl/provider"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finetl",
	Short: "finetl ingests financial statements and maintains derived ratios",
	Long: `finetl is the WindBorne statement pipeline. It fetches annual
financial statements for a configured set of public companies from
Alpha Vantage, normalizes the heterogeneous payloads into a relational
model, derives a fixed catalogue of financial ratios (profitability,
liquidity, leverage, efficiency, growth), and loads everything into
PostgreSQL idempotently so repeated runs never duplicate rows.

Every invocation is recorded in the etl_runs table with call counts,
failure counts, and the full structured list of data-quality errors; the
dashboard and the workflow scheduler both read run health from there.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.finetl.toml)")
	rootCmd.PersistentFlags().String("dbUrl", "", "database connection string")
	if err := viper.BindPFlag("db.url", rootCmd.PersistentFlags().Lookup("dbUrl")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbUrl failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".finetl" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".finetl")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	viper.SetDefault("etl.workflow", "windborne_etl")
	viper.SetDefault("etl.years_to_fetch", 3)
	viper.SetDefault("alphavantage.base_url", provider.DefaultBaseURL)
	viper.SetDefault("alphavantage.delay", "12s")
	viper.SetDefault("alphavantage.max_retries", 3)
	viper.SetDefault("alphavantage.backoff", "15s")
	viper.SetDefault("server.address", ":5000")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// pipelineConfig resolves the pipeline settings from viper. Settings are
// read once at process start; there is no hot reload.
func pipelineConfig() etl.Config {
	return etl.Config{
		Workflow:     viper.GetString("etl.workflow"),
		Symbols:      splitSymbols(viper.GetString("etl.companies")),
		YearsToFetch: viper.GetInt("etl.years_to_fetch"),
		CallBudget:   viper.GetInt("etl.call_budget"),
	}
}

func providerConfig() provider.Config {
	return provider.Config{
		APIKey:     viper.GetString("alphavantage.api_key"),
		BaseURL:    viper.GetString("alphavantage.base_url"),
		Delay:      viper.GetDuration("alphavantage.delay"),
		MaxRetries: viper.GetInt("alphavantage.max_retries"),
		Backoff:    viper.GetDuration("alphavantage.backoff"),
	}
}

// requireCredentials aborts before any company is attempted when the
// provider credential is missing.
func requireCredentials() {
	if viper.GetString("alphavantage.api_key") == "" {
		log.Fatal().Msg("alphavantage.api_key is not configured")
	}
}

func splitSymbols(companies string) []string {
	var symbols []string

	for _, symbol := range strings.Split(companies, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol != "" {
			symbols = append(symbols, strings.ToUpper(symbol))
		}
	}

	return symbols
}
