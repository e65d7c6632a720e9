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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/windborne/finetl/data"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func metricByName(metrics []*data.CalculatedMetric, name string) *data.CalculatedMetric {
	for _, metric := range metrics {
		if metric.MetricName == name {
			return metric
		}
	}

	return nil
}

var _ = Describe("Calculator", func() {
	var (
		calculator *Calculator
		company    *data.Company
	)

	BeforeEach(func() {
		calculator = NewCalculator()
		company = &data.Company{ID: 1, Symbol: "TEL"}
	})

	Context("with a complete set of inputs", func() {
		var in Inputs

		BeforeEach(func() {
			in = Inputs{
				"total_revenue":       dec("1000.00"),
				"gross_profit":        dec("400.00"),
				"operating_income":    dec("250.00"),
				"net_income":          dec("150.00"),
				"total_equity":        dec("600.00"),
				"current_assets":      dec("500.00"),
				"current_liabilities": dec("250.00"),
				"inventory":           dec("100.00"),
				"total_debt":          dec("300.00"),
				"total_assets":        dec("2000.00"),
			}
		})

		It("computes the full single-year catalogue", func() {
			metrics, qualities := calculator.Calculate(company, 2023, in, nil)
			Expect(qualities).To(BeEmpty())
			Expect(metrics).To(HaveLen(8))

			Expect(metricByName(metrics, "net_margin").MetricValue.Equal(dec("0.15"))).To(BeTrue())
			Expect(metricByName(metrics, "gross_margin").MetricValue.Equal(dec("0.4"))).To(BeTrue())
			Expect(metricByName(metrics, "operating_margin").MetricValue.Equal(dec("0.25"))).To(BeTrue())
			Expect(metricByName(metrics, "return_on_equity").MetricValue.Equal(dec("0.25"))).To(BeTrue())
			Expect(metricByName(metrics, "current_ratio").MetricValue.Equal(dec("2"))).To(BeTrue())
			Expect(metricByName(metrics, "quick_ratio").MetricValue.Equal(dec("1.6"))).To(BeTrue())
			Expect(metricByName(metrics, "debt_to_equity").MetricValue.Equal(dec("0.5"))).To(BeTrue())
			Expect(metricByName(metrics, "asset_turnover").MetricValue.Equal(dec("0.5"))).To(BeTrue())
		})

		It("tags each metric with its category", func() {
			metrics, _ := calculator.Calculate(company, 2023, in, nil)

			Expect(metricByName(metrics, "net_margin").Category).To(Equal(data.Profitability))
			Expect(metricByName(metrics, "current_ratio").Category).To(Equal(data.Liquidity))
			Expect(metricByName(metrics, "debt_to_equity").Category).To(Equal(data.Leverage))
			Expect(metricByName(metrics, "asset_turnover").Category).To(Equal(data.Efficiency))
		})

		It("returns bit-identical values across repeated invocations", func() {
			first, _ := calculator.Calculate(company, 2023, in, nil)
			second, _ := calculator.Calculate(company, 2023, in, nil)

			Expect(second).To(HaveLen(len(first)))
			for idx := range first {
				Expect(second[idx].MetricName).To(Equal(first[idx].MetricName))
				Expect(second[idx].MetricValue.String()).To(Equal(first[idx].MetricValue.String()))
			}
		})

		It("rounds ratios to four decimal places", func() {
			in["net_income"] = dec("1.00")
			in["total_revenue"] = dec("3.00")

			metrics, _ := calculator.Calculate(company, 2023, in, nil)
			Expect(metricByName(metrics, "net_margin").MetricValue.String()).To(Equal("0.3333"))
		})
	})

	Context("with missing inputs", func() {
		It("skips exactly the metrics that need the missing field", func() {
			in := Inputs{
				"total_revenue": dec("1000.00"),
				"net_income":    dec("150.00"),
				"total_debt":    dec("300.00"),
				"total_assets":  dec("2000.00"),
			}

			metrics, qualities := calculator.Calculate(company, 2023, in, nil)
			Expect(qualities).To(BeEmpty())

			// no total_equity: ROE and debt-to-equity are absent
			Expect(metricByName(metrics, "return_on_equity")).To(BeNil())
			Expect(metricByName(metrics, "debt_to_equity")).To(BeNil())

			// metrics with satisfied inputs are unaffected
			Expect(metricByName(metrics, "net_margin")).NotTo(BeNil())
			Expect(metricByName(metrics, "asset_turnover")).NotTo(BeNil())
		})

		It("skips the quick ratio when inventory is missing", func() {
			in := Inputs{
				"current_assets":      dec("500.00"),
				"current_liabilities": dec("250.00"),
			}

			metrics, _ := calculator.Calculate(company, 2023, in, nil)
			Expect(metricByName(metrics, "current_ratio")).NotTo(BeNil())
			Expect(metricByName(metrics, "quick_ratio")).To(BeNil())
		})
	})

	Context("with a zero denominator", func() {
		It("skips the metric and emits a quality note instead of infinity", func() {
			in := Inputs{
				"total_revenue": dec("0.00"),
				"net_income":    dec("50.00"),
			}

			metrics, qualities := calculator.Calculate(company, 2023, in, nil)
			Expect(metricByName(metrics, "net_margin")).To(BeNil())

			Expect(qualities).NotTo(BeEmpty())
			Expect(qualities[0].Symbol).To(Equal("TEL"))
			Expect(qualities[0].FiscalYear).To(Equal(2023))
			Expect(qualities[0].Reason).To(ContainSubstring("zero denominator"))
		})
	})

	Context("growth metrics", func() {
		It("is absent without prior-year inputs", func() {
			in := Inputs{"total_revenue": dec("1100.00"), "net_income": dec("100.00")}

			metrics, _ := calculator.Calculate(company, 2023, in, nil)
			Expect(metricByName(metrics, "revenue_growth")).To(BeNil())
			Expect(metricByName(metrics, "net_income_growth")).To(BeNil())
		})

		It("compares against the prior fiscal year", func() {
			in := Inputs{"total_revenue": dec("1100.00"), "net_income": dec("90.00")}
			prev := Inputs{"total_revenue": dec("1000.00"), "net_income": dec("100.00")}

			metrics, _ := calculator.Calculate(company, 2023, in, prev)

			Expect(metricByName(metrics, "revenue_growth").MetricValue.Equal(dec("0.1"))).To(BeTrue())
			Expect(metricByName(metrics, "net_income_growth").MetricValue.Equal(dec("-0.1"))).To(BeTrue())
			Expect(metricByName(metrics, "revenue_growth").Category).To(Equal(data.Growth))
		})

		It("uses the absolute prior value when net income flipped sign", func() {
			in := Inputs{"net_income": dec("50.00")}
			prev := Inputs{"net_income": dec("-100.00")}

			metrics, _ := calculator.Calculate(company, 2023, in, prev)
			Expect(metricByName(metrics, "net_income_growth").MetricValue.Equal(dec("1.5"))).To(BeTrue())
		})

		It("skips growth on a zero prior value with a quality note", func() {
			in := Inputs{"total_revenue": dec("1100.00")}
			prev := Inputs{"total_revenue": dec("0.00")}

			metrics, qualities := calculator.Calculate(company, 2023, in, prev)
			Expect(metricByName(metrics, "revenue_growth")).To(BeNil())
			Expect(qualities).To(HaveLen(1))
		})
	})
})
