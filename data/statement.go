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

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StatementRecord is a single normalized fact from a financial statement.
// The natural key is (company, statement type, fiscal year, fiscal period,
// metric name); saving a record with an existing key replaces its value
// wholesale.
type StatementRecord struct {
	CompanyID     int64
	Symbol        string
	StatementType StatementType
	FiscalYear    int
	FiscalPeriod  string
	MetricName    string
	MetricValue   decimal.Decimal
	Currency      string
	RawData       []byte
}

func (rec *StatementRecord) SaveDB(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `INSERT INTO financial_statements (
		"company_id",
		"statement_type",
		"fiscal_year",
		"fiscal_period",
		"metric_name",
		"metric_value",
		"reported_currency",
		"raw_data"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8
	) ON CONFLICT ON CONSTRAINT financial_statements_natural_key
	DO UPDATE SET
		metric_value = EXCLUDED.metric_value,
		reported_currency = EXCLUDED.reported_currency,
		raw_data = EXCLUDED.raw_data,
		created_at = now()`,
		rec.CompanyID,
		rec.StatementType,
		rec.FiscalYear,
		rec.FiscalPeriod,
		rec.MetricName,
		rec.MetricValue.String(),
		rec.Currency,
		rec.RawData,
	)
	return err
}

func (rec *StatementRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Symbol", rec.Symbol)
	e.Str("StatementType", string(rec.StatementType))
	e.Int("FiscalYear", rec.FiscalYear)
	e.Str("MetricName", rec.MetricName)
	e.Str("MetricValue", rec.MetricValue.String())
}
