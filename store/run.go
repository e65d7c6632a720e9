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
package store

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/windborne/finetl/data"
)

// LatestRun returns the most recent etl_runs row, or ErrNoRuns when the
// history is empty.
func (myStore *Store) LatestRun(ctx context.Context) (*data.EtlRun, error) {
	run := &data.EtlRun{}

	var qualityJSON []byte

	err := myStore.Pool.QueryRow(ctx,
		`SELECT id, run_date, workflow_name, companies_attempted, companies_processed,
			api_calls_made, api_failures, data_quality_errors, execution_time_seconds,
			status, coalesce(error_details, '')
		 FROM etl_runs ORDER BY run_date DESC LIMIT 1`).Scan(
		&run.ID,
		&run.RunDate,
		&run.Workflow,
		&run.CompaniesAttempted,
		&run.CompaniesProcessed,
		&run.APICalls,
		&run.APIFailures,
		&qualityJSON,
		&run.ExecutionSeconds,
		&run.Status,
		&run.ErrorDetails,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRuns
		}
		return nil, err
	}

	run.ExecutionTime = time.Duration(run.ExecutionSeconds) * time.Second

	if len(qualityJSON) > 0 {
		if err := json.Unmarshal(qualityJSON, &run.QualityErrors); err != nil {
			return nil, err
		}
	}

	return run, nil
}
