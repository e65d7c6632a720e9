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
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/windborne/finetl/data"
)

var _ = Describe("Normalizer", func() {
	var (
		normalizer *Normalizer
		company    *data.Company
	)

	BeforeEach(func() {
		normalizer = NewNormalizer(3)
		normalizer.now = func() time.Time {
			return time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
		}
		company = &data.Company{ID: 7, Symbol: "AAPL"}
	})

	incomePayload := json.RawMessage(`{
		"symbol": "AAPL",
		"annualReports": [
			{
				"fiscalDateEnding": "2023-09-30",
				"reportedCurrency": "USD",
				"totalRevenue": "383285000000",
				"grossProfit": "169148000000",
				"operatingIncome": "114301000000",
				"netIncome": "96995000000",
				"costOfRevenue": "214137000000",
				"ebitda": "125820000000",
				"researchAndDevelopment": "29915000000",
				"operatingExpenses": "54847000000",
				"depreciationAndAmortization": "11519000000"
			}
		]
	}`)

	Describe("Normalize", func() {
		It("maps provider fields to canonical metric names", func() {
			records, qualities := normalizer.Normalize(company, data.IncomeStatement, incomePayload)

			Expect(qualities).To(BeEmpty())
			Expect(records).To(HaveLen(8))

			Expect(records[0].MetricName).To(Equal("total_revenue"))
			Expect(records[0].MetricValue.String()).To(Equal("383285000000"))
			Expect(records[0].CompanyID).To(Equal(int64(7)))
			Expect(records[0].Symbol).To(Equal("AAPL"))
			Expect(records[0].StatementType).To(Equal(data.IncomeStatement))
			Expect(records[0].FiscalYear).To(Equal(2023))
			Expect(records[0].FiscalPeriod).To(Equal("FY"))
			Expect(records[0].Currency).To(Equal("USD"))
			Expect(records[0].RawData).NotTo(BeEmpty())

			// unmapped provider fields are dropped without a quality note
			for _, rec := range records {
				Expect(rec.MetricName).NotTo(Equal("depreciationAndAmortization"))
			}
		})

		It("produces identical output for repeated invocations", func() {
			first, _ := normalizer.Normalize(company, data.IncomeStatement, incomePayload)
			second, _ := normalizer.Normalize(company, data.IncomeStatement, incomePayload)

			Expect(second).To(HaveLen(len(first)))
			for idx := range first {
				Expect(second[idx].MetricName).To(Equal(first[idx].MetricName))
				Expect(second[idx].MetricValue.String()).To(Equal(first[idx].MetricValue.String()))
			}
		})

		It("drops fiscal years outside the lookback window", func() {
			payload := json.RawMessage(`{
				"annualReports": [
					{"fiscalDateEnding": "2023-12-31", "totalRevenue": "100"},
					{"fiscalDateEnding": "2020-12-31", "totalRevenue": "90"}
				]
			}`)

			records, _ := normalizer.Normalize(company, data.IncomeStatement, payload)

			years := map[int]bool{}
			for _, rec := range records {
				years[rec.FiscalYear] = true
			}
			Expect(years).To(HaveKey(2023))
			Expect(years).NotTo(HaveKey(2020))
		})

		It("reports missing and sentinel values per field", func() {
			payload := json.RawMessage(`{
				"annualReports": [
					{"fiscalDateEnding": "2023-12-31", "totalRevenue": "None", "netIncome": "50"}
				]
			}`)

			records, qualities := normalizer.Normalize(company, data.IncomeStatement, payload)

			names := map[string]bool{}
			for _, rec := range records {
				names[rec.MetricName] = true
			}
			Expect(names).To(HaveKey("net_income"))
			Expect(names).NotTo(HaveKey("total_revenue"))

			var reported []string
			for _, q := range qualities {
				if q.Reason == "missing value" {
					reported = append(reported, q.Field)
				}
			}
			Expect(reported).To(ContainElement("total_revenue"))
		})

		It("reports non-numeric values without dropping the statement", func() {
			payload := json.RawMessage(`{
				"annualReports": [
					{"fiscalDateEnding": "2023-12-31", "totalRevenue": "n/a", "netIncome": "50"}
				]
			}`)

			records, qualities := normalizer.Normalize(company, data.IncomeStatement, payload)

			Expect(records).To(HaveLen(1))
			Expect(records[0].MetricName).To(Equal("net_income"))

			found := false
			for _, q := range qualities {
				if q.Field == "total_revenue" && q.Reason == "non-numeric value" {
					found = true
					Expect(q.Value).To(Equal("n/a"))
				}
			}
			Expect(found).To(BeTrue())
		})

		It("defaults the currency to USD", func() {
			payload := json.RawMessage(`{
				"annualReports": [
					{"fiscalDateEnding": "2023-12-31", "totalRevenue": "100"}
				]
			}`)

			records, _ := normalizer.Normalize(company, data.IncomeStatement, payload)
			Expect(records).To(HaveLen(1))
			Expect(records[0].Currency).To(Equal("USD"))
		})

		It("flags reports without a usable fiscal date", func() {
			payload := json.RawMessage(`{
				"annualReports": [
					{"totalRevenue": "100"},
					{"fiscalDateEnding": "20xx-12-31", "totalRevenue": "100"}
				]
			}`)

			records, qualities := normalizer.Normalize(company, data.IncomeStatement, payload)
			Expect(records).To(BeEmpty())
			Expect(qualities).To(HaveLen(2))
			Expect(qualities[0].Reason).To(Equal("missing fiscal date"))
			Expect(qualities[1].Reason).To(Equal("invalid fiscal date"))
		})

		It("reports an unparseable payload as a single quality error", func() {
			records, qualities := normalizer.Normalize(company, data.IncomeStatement, json.RawMessage(`not json`))

			Expect(records).To(BeNil())
			Expect(qualities).To(HaveLen(1))
			Expect(qualities[0].Reason).To(Equal("unparseable statement payload"))
		})
	})

	Describe("Validate", func() {
		rec := func(year int, name, value string) *data.StatementRecord {
			return &data.StatementRecord{
				Symbol:      "AAPL",
				FiscalYear:  year,
				MetricName:  name,
				MetricValue: dec(value),
			}
		}

		It("accepts a balanced, positive-revenue company", func() {
			records := []*data.StatementRecord{
				rec(2023, "total_revenue", "1000"),
				rec(2023, "total_assets", "2000"),
				rec(2023, "total_liabilities", "1200"),
				rec(2023, "total_equity", "800"),
			}

			Expect(normalizer.Validate("AAPL", records)).To(BeEmpty())
		})

		It("flags negative revenue", func() {
			qualities := normalizer.Validate("AAPL", []*data.StatementRecord{
				rec(2023, "total_revenue", "-5"),
			})

			Expect(qualities).To(HaveLen(1))
			Expect(qualities[0].Reason).To(Equal("negative revenue"))
			Expect(qualities[0].FiscalYear).To(Equal(2023))
		})

		It("flags a balance sheet identity violation beyond tolerance", func() {
			qualities := normalizer.Validate("AAPL", []*data.StatementRecord{
				rec(2023, "total_assets", "2000"),
				rec(2023, "total_liabilities", "1200"),
				rec(2023, "total_equity", "700"),
			})

			Expect(qualities).To(HaveLen(1))
			Expect(qualities[0].Reason).To(Equal("balance sheet mismatch"))
		})

		It("tolerates rounding inside one percent of assets", func() {
			qualities := normalizer.Validate("AAPL", []*data.StatementRecord{
				rec(2023, "total_assets", "2000"),
				rec(2023, "total_liabilities", "1200"),
				rec(2023, "total_equity", "790"),
			})

			Expect(qualities).To(BeEmpty())
		})

		It("skips the identity check when a side is missing", func() {
			qualities := normalizer.Validate("AAPL", []*data.StatementRecord{
				rec(2023, "total_assets", "2000"),
				rec(2023, "total_liabilities", "1200"),
			})

			Expect(qualities).To(BeEmpty())
		})
	})
})
