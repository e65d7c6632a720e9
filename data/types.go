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

import "time"

// StatementType identifies one of the three financial statements published
// with a company filing. The set is closed; the provider exposes exactly one
// API function per type.
type StatementType string

const (
	IncomeStatement StatementType = "INCOME"
	BalanceSheet    StatementType = "BALANCE"
	CashFlow        StatementType = "CASHFLOW"
)

// StatementTypes lists every statement fetched for a company, in fetch order.
var StatementTypes = []StatementType{IncomeStatement, BalanceSheet, CashFlow}

type MetricCategory string

const (
	Profitability MetricCategory = "PROFITABILITY"
	Liquidity     MetricCategory = "LIQUIDITY"
	Leverage      MetricCategory = "LEVERAGE"
	Efficiency    MetricCategory = "EFFICIENCY"
	Growth        MetricCategory = "GROWTH"
)

type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunPartial RunStatus = "PARTIAL"
	RunFailed  RunStatus = "FAILED"
)

// Company is a member of the configured universe. Rows are created by seed
// or manual insert, never by the pipeline itself.
type Company struct {
	ID       int64     `csv:"-" db:"id"`
	Symbol   string    `csv:"symbol" db:"symbol"`
	Name     string    `csv:"name" db:"name"`
	Sector   string    `csv:"sector" db:"sector"`
	Industry string    `csv:"industry" db:"industry"`
	Priority int       `csv:"priority" db:"priority"`
	Updated  time.Time `csv:"-" db:"updated_at"`
}

// QualityError records a single non-fatal data anomaly. The full list for a
// run is persisted as structured JSON on the etl_runs row.
type QualityError struct {
	Symbol     string        `json:"symbol"`
	Statement  StatementType `json:"statement,omitempty"`
	FiscalYear int           `json:"fiscal_year,omitempty"`
	Field      string        `json:"field,omitempty"`
	Reason     string        `json:"reason"`
	Value      string        `json:"value,omitempty"`
}
