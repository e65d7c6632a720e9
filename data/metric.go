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

// CalculatedMetric is a derived ratio for one company and fiscal year. Rows
// are fully recomputed and overwritten whenever the underlying statements
// for that year change; a missing row means the inputs were insufficient,
// which is deliberately distinguishable from a computed zero.
type CalculatedMetric struct {
	CompanyID   int64
	Symbol      string
	FiscalYear  int
	MetricName  string
	MetricValue decimal.Decimal
	Category    MetricCategory
}

func (metric *CalculatedMetric) SaveDB(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `INSERT INTO calculated_metrics (
		"company_id",
		"fiscal_year",
		"metric_name",
		"metric_value",
		"metric_category"
	) VALUES (
		$1, $2, $3, $4, $5
	) ON CONFLICT ON CONSTRAINT calculated_metrics_natural_key
	DO UPDATE SET
		metric_value = EXCLUDED.metric_value,
		metric_category = EXCLUDED.metric_category,
		calculated_at = now()`,
		metric.CompanyID,
		metric.FiscalYear,
		metric.MetricName,
		metric.MetricValue.String(),
		metric.Category,
	)
	return err
}

func (metric *CalculatedMetric) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Symbol", metric.Symbol)
	e.Int("FiscalYear", metric.FiscalYear)
	e.Str("MetricName", metric.MetricName)
	e.Str("MetricValue", metric.MetricValue.String())
	e.Str("Category", string(metric.Category))
}
