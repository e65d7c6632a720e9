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
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/windborne/finetl/data"
)

// ratioPlaces is the fixed scale for every computed ratio. Decimal
// arithmetic with a fixed rounding scale keeps repeated runs on the same
// inputs bit-identical.
const ratioPlaces = 4

// Inputs holds the normalized statement values for one company and fiscal
// year, keyed by canonical metric name.
type Inputs map[string]decimal.Decimal

// operand references a statement value, optionally less a second one
// (e.g. current_assets - inventory). Missing either field makes the whole
// operand unavailable.
type operand struct {
	field string
	less  string
}

func (op operand) value(in Inputs) (decimal.Decimal, bool) {
	v, ok := in[op.field]
	if !ok {
		return decimal.Decimal{}, false
	}

	if op.less != "" {
		sub, ok := in[op.less]
		if !ok {
			return decimal.Decimal{}, false
		}
		v = v.Sub(sub)
	}

	return v, true
}

type formula struct {
	name        string
	category    data.MetricCategory
	numerator   operand
	denominator operand
}

// ratioFormulas is the fixed single-year catalogue. A formula whose inputs
// are missing is skipped without comment; absence of the metric row is the
// signal for insufficient data.
var ratioFormulas = []formula{
	{"gross_margin", data.Profitability, operand{field: "gross_profit"}, operand{field: "total_revenue"}},
	{"operating_margin", data.Profitability, operand{field: "operating_income"}, operand{field: "total_revenue"}},
	{"net_margin", data.Profitability, operand{field: "net_income"}, operand{field: "total_revenue"}},
	{"return_on_equity", data.Profitability, operand{field: "net_income"}, operand{field: "total_equity"}},
	{"current_ratio", data.Liquidity, operand{field: "current_assets"}, operand{field: "current_liabilities"}},
	{"quick_ratio", data.Liquidity, operand{field: "current_assets", less: "inventory"}, operand{field: "current_liabilities"}},
	{"debt_to_equity", data.Leverage, operand{field: "total_debt"}, operand{field: "total_equity"}},
	{"asset_turnover", data.Efficiency, operand{field: "total_revenue"}, operand{field: "total_assets"}},
}

// growthFormulas compare a value against the prior fiscal year. The
// denominator is the prior value, taken as an absolute when the sign of the
// base can flip (net income).
var growthFormulas = []struct {
	name     string
	field    string
	absolute bool
}{
	{"revenue_growth", "total_revenue", false},
	{"net_income_growth", "net_income", true},
}

// Calculator derives the fixed ratio catalogue from normalized statement
// values.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate computes every ratio whose inputs are present for the given
// fiscal year. prev carries the prior year's values for growth ratios and
// may be nil. A zero denominator skips the metric and emits a quality note;
// a ratio is never computed as infinity or NaN.
func (calc *Calculator) Calculate(company *data.Company, fiscalYear int, in Inputs, prev Inputs) ([]*data.CalculatedMetric, []data.QualityError) {
	var (
		metrics   []*data.CalculatedMetric
		qualities []data.QualityError
	)

	for _, f := range ratioFormulas {
		numerator, ok := f.numerator.value(in)
		if !ok {
			continue
		}

		denominator, ok := f.denominator.value(in)
		if !ok {
			continue
		}

		if denominator.IsZero() {
			qualities = append(qualities, data.QualityError{
				Symbol:     company.Symbol,
				FiscalYear: fiscalYear,
				Field:      f.name,
				Reason:     fmt.Sprintf("zero denominator %s", f.denominator.field),
			})
			continue
		}

		metrics = append(metrics, &data.CalculatedMetric{
			CompanyID:   company.ID,
			Symbol:      company.Symbol,
			FiscalYear:  fiscalYear,
			MetricName:  f.name,
			MetricValue: numerator.DivRound(denominator, ratioPlaces),
			Category:    f.category,
		})
	}

	if prev == nil {
		return metrics, qualities
	}

	for _, f := range growthFormulas {
		current, ok := in[f.field]
		if !ok {
			continue
		}

		base, ok := prev[f.field]
		if !ok {
			continue
		}

		if base.IsZero() {
			qualities = append(qualities, data.QualityError{
				Symbol:     company.Symbol,
				FiscalYear: fiscalYear,
				Field:      f.name,
				Reason:     fmt.Sprintf("zero denominator prior-year %s", f.field),
			})
			continue
		}

		denominator := base
		if f.absolute {
			denominator = base.Abs()
		}

		metrics = append(metrics, &data.CalculatedMetric{
			CompanyID:   company.ID,
			Symbol:      company.Symbol,
			FiscalYear:  fiscalYear,
			MetricName:  f.name,
			MetricValue: current.Sub(base).DivRound(denominator, ratioPlaces),
			Category:    data.Growth,
		})
	}

	return metrics, qualities
}
