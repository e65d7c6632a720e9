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
package data_test

import (
	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/windborne/finetl/data"
)

var _ = Describe("EtlRun", func() {
	var run *data.EtlRun

	BeforeEach(func() {
		run = data.NewEtlRun("windborne_etl")
		run.CompaniesAttempted = 3
	})

	Describe("Finalize", func() {
		It("is SUCCESS when everything attempted was processed cleanly", func() {
			run.CompaniesProcessed = 3
			run.APICalls = 9

			run.Finalize()
			Expect(run.Status).To(Equal(data.RunSuccess))
		})

		It("is PARTIAL when some companies were skipped", func() {
			run.CompaniesProcessed = 2

			run.Finalize()
			Expect(run.Status).To(Equal(data.RunPartial))
		})

		It("is PARTIAL when an API call failed even if all companies processed", func() {
			run.CompaniesProcessed = 3
			run.APIFailures = 1

			run.Finalize()
			Expect(run.Status).To(Equal(data.RunPartial))
		})

		It("is PARTIAL when quality errors were recorded", func() {
			run.CompaniesProcessed = 3
			run.QualityErrors = append(run.QualityErrors, data.QualityError{
				Symbol: "AAPL",
				Reason: "missing value",
			})

			run.Finalize()
			Expect(run.Status).To(Equal(data.RunPartial))
		})

		It("is FAILED when nothing was processed", func() {
			run.Finalize()
			Expect(run.Status).To(Equal(data.RunFailed))
		})

		It("freezes the execution time", func() {
			run.CompaniesProcessed = 3
			run.Finalize()
			Expect(run.ExecutionTime).To(BeNumerically(">", 0))
			Expect(run.ExecutionSeconds).To(BeNumerically(">=", 0))
		})
	})

	It("serializes with the workflow scheduler's field names", func() {
		run.CompaniesProcessed = 2
		run.APICalls = 9
		run.APIFailures = 3
		run.Finalize()

		payload, err := json.Marshal(run)
		Expect(err).NotTo(HaveOccurred())

		var fields map[string]any
		Expect(json.Unmarshal(payload, &fields)).To(Succeed())

		Expect(fields).To(HaveKey("workflow_name"))
		Expect(fields).To(HaveKey("companies_attempted"))
		Expect(fields).To(HaveKey("companies_processed"))
		Expect(fields).To(HaveKey("api_calls_made"))
		Expect(fields).To(HaveKey("api_failures"))
		Expect(fields).To(HaveKey("data_quality_errors"))
		Expect(fields).To(HaveKey("execution_time_seconds"))
		Expect(fields["status"]).To(Equal("PARTIAL"))
	})
})
