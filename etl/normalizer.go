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
package etl

import (
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/windborne/finetl/data"
)

type fieldMapping struct {
	providerField string
	metricName    string
}

// fieldMappings translates provider field names to the canonical metric
// vocabulary. Provider fields not listed here are dropped silently; the API
// returns far more fields than are modeled. Slice order fixes record order
// so normalizing the same payload twice yields identical output.
var fieldMappings = map[data.StatementType][]fieldMapping{
	data.IncomeStatement: {
		{"totalRevenue", "total_revenue"},
		{"costOfRevenue", "cost_of_revenue"},
		{"grossProfit", "gross_profit"},
		{"operatingIncome", "operating_income"},
		{"netIncome", "net_income"},
		{"ebitda", "ebitda"},
		{"researchAndDevelopment", "research_and_development"},
		{"operatingExpenses", "operating_expenses"},
	},
	data.BalanceSheet: {
		{"totalAssets", "total_assets"},
		{"totalCurrentAssets", "current_assets"},
		{"cashAndCashEquivalentsAtCarryingValue", "cash_and_equivalents"},
		{"inventory", "inventory"},
		{"totalLiabilities", "total_liabilities"},
		{"totalCurrentLiabilities", "current_liabilities"},
		{"totalShareholderEquity", "total_equity"},
		{"shortLongTermDebtTotal", "total_debt"},
		{"longTermDebt", "long_term_debt"},
		{"currentDebt", "current_debt"},
	},
	data.CashFlow: {
		{"operatingCashflow", "operating_cashflow"},
		{"cashflowFromInvestment", "investing_cashflow"},
		{"cashflowFromFinancing", "financing_cashflow"},
		{"capitalExpenditures", "capital_expenditures"},
	},
}

// Normalizer converts raw provider payloads into flat statement records,
// keeping only fiscal years inside the configured lookback window.
type Normalizer struct {
	yearsToFetch int
	now          func() time.Time
}

func NewNormalizer(yearsToFetch int) *Normalizer {
	if yearsToFetch <= 0 {
		yearsToFetch = 3
	}

	return &Normalizer{
		yearsToFetch: yearsToFetch,
		now:          time.Now,
	}
}

type annualPayload struct {
	Symbol        string              `json:"symbol"`
	AnnualReports []map[string]string `json:"annualReports"`
}

// Normalize flattens one statement payload into records. A field that is
// absent, reported as "None", or non-numeric produces a quality error for
// that field and is excluded from the output; the rest of the statement is
// unaffected.
func (norm *Normalizer) Normalize(company *data.Company, statementType data.StatementType, raw json.RawMessage) ([]*data.StatementRecord, []data.QualityError) {
	var (
		records   []*data.StatementRecord
		qualities []data.QualityError
	)

	var payload annualPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		qualities = append(qualities, data.QualityError{
			Symbol:    company.Symbol,
			Statement: statementType,
			Reason:    "unparseable statement payload",
		})
		return nil, qualities
	}

	minYear := norm.now().Year() - norm.yearsToFetch

	for _, report := range payload.AnnualReports {
		fiscalDate := report["fiscalDateEnding"]
		if len(fiscalDate) < 4 {
			qualities = append(qualities, data.QualityError{
				Symbol:    company.Symbol,
				Statement: statementType,
				Field:     "fiscalDateEnding",
				Reason:    "missing fiscal date",
				Value:     fiscalDate,
			})
			continue
		}

		fiscalYear, err := strconv.Atoi(fiscalDate[:4])
		if err != nil {
			qualities = append(qualities, data.QualityError{
				Symbol:    company.Symbol,
				Statement: statementType,
				Field:     "fiscalDateEnding",
				Reason:    "invalid fiscal date",
				Value:     fiscalDate,
			})
			continue
		}

		if fiscalYear < minYear {
			continue
		}

		currency := report["reportedCurrency"]
		if currency == "" {
			currency = "USD"
		}

		// keep the originating report fragment for traceability
		rawReport, err := json.Marshal(report)
		if err != nil {
			log.Error().Err(err).Str("Symbol", company.Symbol).Msg("could not re-marshal report fragment")
		}

		for _, mapping := range fieldMappings[statementType] {
			value, present := report[mapping.providerField]
			if !present || value == "" || value == "None" {
				qualities = append(qualities, data.QualityError{
					Symbol:     company.Symbol,
					Statement:  statementType,
					FiscalYear: fiscalYear,
					Field:      mapping.metricName,
					Reason:     "missing value",
				})
				continue
			}

			metricValue, err := decimal.NewFromString(value)
			if err != nil {
				qualities = append(qualities, data.QualityError{
					Symbol:     company.Symbol,
					Statement:  statementType,
					FiscalYear: fiscalYear,
					Field:      mapping.metricName,
					Reason:     "non-numeric value",
					Value:      value,
				})
				continue
			}

			records = append(records, &data.StatementRecord{
				CompanyID:     company.ID,
				Symbol:        company.Symbol,
				StatementType: statementType,
				FiscalYear:    fiscalYear,
				FiscalPeriod:  "FY",
				MetricName:    mapping.metricName,
				MetricValue:   metricValue,
				Currency:      currency,
				RawData:       rawReport,
			})
		}
	}

	return records, qualities
}

// balance sheet identity tolerance: 1% of total assets
var balanceTolerance = decimal.NewFromFloat(0.01)

// Validate runs cross-statement consistency checks over all records
// normalized for one company: revenue must not be negative and the balance
// sheet must balance within tolerance. Violations are reported, never fatal.
func (norm *Normalizer) Validate(symbol string, records []*data.StatementRecord) []data.QualityError {
	byYear := make(map[int]map[string]decimal.Decimal)
	for _, rec := range records {
		values, ok := byYear[rec.FiscalYear]
		if !ok {
			values = make(map[string]decimal.Decimal)
			byYear[rec.FiscalYear] = values
		}
		values[rec.MetricName] = rec.MetricValue
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	var qualities []data.QualityError

	for _, year := range years {
		values := byYear[year]

		if revenue, ok := values["total_revenue"]; ok && revenue.IsNegative() {
			qualities = append(qualities, data.QualityError{
				Symbol:     symbol,
				FiscalYear: year,
				Field:      "total_revenue",
				Reason:     "negative revenue",
				Value:      revenue.String(),
			})
		}

		assets, haveAssets := values["total_assets"]
		liabilities, haveLiabilities := values["total_liabilities"]
		equity, haveEquity := values["total_equity"]

		if haveAssets && haveLiabilities && haveEquity {
			diff := assets.Sub(liabilities.Add(equity)).Abs()
			tolerance := assets.Abs().Mul(balanceTolerance)
			if assets.IsZero() {
				tolerance = decimal.NewFromInt(1000)
			}

			if diff.GreaterThan(tolerance) {
				qualities = append(qualities, data.QualityError{
					Symbol:     symbol,
					FiscalYear: year,
					Field:      "total_assets",
					Reason:     "balance sheet mismatch",
					Value:      diff.String(),
				})
			}
		}
	}

	return qualities
}
