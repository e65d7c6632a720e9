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
package data

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// EtlRun is the accounting record for one pipeline invocation. Rows are
// append-only history; the latest-health view is a query over them.
type EtlRun struct {
	ID                 uuid.UUID      `json:"id"`
	RunDate            time.Time      `json:"run_date"`
	Workflow           string         `json:"workflow_name"`
	CompaniesAttempted int            `json:"companies_attempted"`
	CompaniesProcessed int            `json:"companies_processed"`
	APICalls           int            `json:"api_calls_made"`
	APIFailures        int            `json:"api_failures"`
	QualityErrors      []QualityError `json:"data_quality_errors"`
	ExecutionTime      time.Duration  `json:"-"`
	ExecutionSeconds   int            `json:"execution_time_seconds"`
	Status             RunStatus      `json:"status"`
	ErrorDetails       string         `json:"error_details,omitempty"`
}

func NewEtlRun(workflow string) *EtlRun {
	return &EtlRun{
		ID:            uuid.New(),
		RunDate:       time.Now(),
		Workflow:      workflow,
		QualityErrors: make([]QualityError, 0),
	}
}

// Finalize derives the terminal status from the accumulated counters and
// freezes the execution time. SUCCESS requires every attempted company to
// have been processed with no API failures and no data-quality errors;
// FAILED means nothing was processed; everything in between is PARTIAL.
func (run *EtlRun) Finalize() {
	run.ExecutionTime = time.Since(run.RunDate)
	run.ExecutionSeconds = int(run.ExecutionTime / time.Second)

	switch {
	case run.CompaniesProcessed == 0:
		run.Status = RunFailed
	case run.CompaniesProcessed == run.CompaniesAttempted &&
		run.APIFailures == 0 && len(run.QualityErrors) == 0:
		run.Status = RunSuccess
	default:
		run.Status = RunPartial
	}
}

func (run *EtlRun) SaveDB(ctx context.Context, tx pgx.Tx) error {
	qualityJSON, err := json.Marshal(run.QualityErrors)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO etl_runs (
		"id",
		"run_date",
		"workflow_name",
		"companies_attempted",
		"companies_processed",
		"api_calls_made",
		"api_failures",
		"data_quality_errors",
		"execution_time_seconds",
		"status",
		"error_details"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)`,
		run.ID,
		run.RunDate,
		run.Workflow,
		run.CompaniesAttempted,
		run.CompaniesProcessed,
		run.APICalls,
		run.APIFailures,
		qualityJSON,
		run.ExecutionSeconds,
		run.Status,
		run.ErrorDetails,
	)
	return err
}

func (run *EtlRun) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", run.ID.String())
	e.Str("Workflow", run.Workflow)
	e.Int("CompaniesProcessed", run.CompaniesProcessed)
	e.Int("APICalls", run.APICalls)
	e.Int("APIFailures", run.APIFailures)
	e.Int("QualityErrors", len(run.QualityErrors))
	e.Str("Status", string(run.Status))
}
