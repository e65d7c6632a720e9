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
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/windborne/finetl/data"
)

var ErrNoCompanies = errors.New("no companies configured")

// Fetcher retrieves one raw statement payload per call. The production
// implementation is provider.AlphaVantage.
type Fetcher interface {
	FetchStatement(ctx context.Context, symbol string, statementType data.StatementType) (json.RawMessage, error)
}

// Storage is the persistence surface the pipeline writes through. The
// production implementation is store.Store.
type Storage interface {
	CompaniesForRun(ctx context.Context, symbols []string) ([]*data.Company, error)
	UpsertStatements(ctx context.Context, records []*data.StatementRecord) error
	UpsertMetrics(ctx context.Context, metrics []*data.CalculatedMetric) error
	TouchCompany(ctx context.Context, companyID int64) error
	SaveRun(ctx context.Context, run *data.EtlRun) error
}

type Config struct {
	Workflow     string
	Symbols      []string
	YearsToFetch int

	// CallBudget caps the number of provider calls one run may start.
	// Zero means unlimited. When the budget cannot cover the next
	// company's statements the run stops early; combined with
	// stale-company-first ordering this rotates the universe across
	// budget-limited runs.
	CallBudget int
}

// Pipeline runs one extraction / transformation / load cycle across the
// configured company universe. Execution is strictly sequential: the
// provider rate limit is a shared global budget, so fanning out would only
// serialize again behind it.
type Pipeline struct {
	cfg        Config
	fetcher    Fetcher
	store      Storage
	normalizer *Normalizer
	calculator *Calculator
}

func NewPipeline(cfg Config, fetcher Fetcher, store Storage) *Pipeline {
	if cfg.Workflow == "" {
		cfg.Workflow = "windborne_etl"
	}

	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		normalizer: NewNormalizer(cfg.YearsToFetch),
		calculator: NewCalculator(),
	}
}

// Run executes the pipeline once and returns the persisted run summary.
// One company failing never aborts the run; every caught error surfaces in
// the summary as either an API-failure count or a quality error. The
// summary row is written unconditionally as the last step.
func (p *Pipeline) Run(ctx context.Context) (*data.EtlRun, error) {
	run := data.NewEtlRun(p.cfg.Workflow)

	if len(p.cfg.Symbols) == 0 {
		run.ErrorDetails = ErrNoCompanies.Error()
		run.Finalize()
		p.record(ctx, run)
		return run, ErrNoCompanies
	}

	run.CompaniesAttempted = len(p.cfg.Symbols)

	companies, err := p.store.CompaniesForRun(ctx, p.cfg.Symbols)
	if err != nil {
		run.ErrorDetails = fmt.Sprintf("could not load company universe: %v", err)
		run.Finalize()
		p.record(ctx, run)
		return run, err
	}

	// a symbol without a companies row is a configuration error for that
	// company; it is skipped, never silently created
	known := make(map[string]bool, len(companies))
	for _, company := range companies {
		known[company.Symbol] = true
	}

	for _, symbol := range p.cfg.Symbols {
		if !known[symbol] {
			log.Error().Str("Symbol", symbol).Msg("company not found in database; skipping")
			run.QualityErrors = append(run.QualityErrors, data.QualityError{
				Symbol: symbol,
				Reason: "company not configured in database",
			})
		}
	}

	for _, company := range companies {
		if p.cfg.CallBudget > 0 && run.APICalls+len(data.StatementTypes) > p.cfg.CallBudget {
			log.Warn().Str("Symbol", company.Symbol).Int("CallBudget", p.cfg.CallBudget).
				Msg("call budget exhausted; remaining companies deferred to next run")
			run.ErrorDetails = fmt.Sprintf("call budget %d exhausted before %s", p.cfg.CallBudget, company.Symbol)
			break
		}

		if p.processCompany(ctx, company, run) {
			run.CompaniesProcessed++

			if err := p.store.TouchCompany(ctx, company.ID); err != nil {
				log.Error().Err(err).Str("Symbol", company.Symbol).Msg("could not update company timestamp")
			}
		}
	}

	run.Finalize()
	p.record(ctx, run)

	log.Info().Object("Run", run).Msg("pipeline finished")

	return run, nil
}

// processCompany fetches, normalizes, loads and derives metrics for a
// single company. It reports whether the company counts as processed, which
// requires at least one statement batch to have been loaded.
func (p *Pipeline) processCompany(ctx context.Context, company *data.Company, run *data.EtlRun) bool {
	logger := log.With().Str("Symbol", company.Symbol).Logger()

	var companyRecords []*data.StatementRecord
	loaded := 0

	for _, statementType := range data.StatementTypes {
		run.APICalls++

		payload, err := p.fetcher.FetchStatement(ctx, company.Symbol, statementType)
		if err != nil {
			run.APIFailures++
			logger.Error().Err(err).Str("StatementType", string(statementType)).Msg("provider fetch failed")
			continue
		}

		records, qualities := p.normalizer.Normalize(company, statementType, payload)
		run.QualityErrors = append(run.QualityErrors, qualities...)

		if len(records) == 0 {
			run.QualityErrors = append(run.QualityErrors, data.QualityError{
				Symbol:    company.Symbol,
				Statement: statementType,
				Reason:    "no usable records in statement",
			})
			continue
		}

		// one transaction per statement batch: either the whole batch
		// commits or none of it does
		if err := p.store.UpsertStatements(ctx, records); err != nil {
			logger.Error().Err(err).Str("StatementType", string(statementType)).Msg("statement load failed")
			run.QualityErrors = append(run.QualityErrors, data.QualityError{
				Symbol:    company.Symbol,
				Statement: statementType,
				Reason:    fmt.Sprintf("load failed: %v", err),
			})
			continue
		}

		loaded++
		companyRecords = append(companyRecords, records...)
	}

	if loaded == 0 {
		logger.Warn().Msg("no statements loaded for company")
		return false
	}

	run.QualityErrors = append(run.QualityErrors, p.normalizer.Validate(company.Symbol, companyRecords)...)

	metrics, qualities := p.deriveMetrics(company, companyRecords)
	run.QualityErrors = append(run.QualityErrors, qualities...)

	if len(metrics) > 0 {
		if err := p.store.UpsertMetrics(ctx, metrics); err != nil {
			logger.Error().Err(err).Msg("metric load failed")
			run.QualityErrors = append(run.QualityErrors, data.QualityError{
				Symbol: company.Symbol,
				Reason: fmt.Sprintf("metric load failed: %v", err),
			})
		}
	}

	logger.Info().Int("Statements", len(companyRecords)).Int("Metrics", len(metrics)).Msg("company processed")

	return true
}

func (p *Pipeline) deriveMetrics(company *data.Company, records []*data.StatementRecord) ([]*data.CalculatedMetric, []data.QualityError) {
	byYear := make(map[int]Inputs)
	for _, rec := range records {
		in, ok := byYear[rec.FiscalYear]
		if !ok {
			in = make(Inputs)
			byYear[rec.FiscalYear] = in
		}
		in[rec.MetricName] = rec.MetricValue
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	var (
		metrics   []*data.CalculatedMetric
		qualities []data.QualityError
	)

	for _, year := range years {
		yearMetrics, yearQualities := p.calculator.Calculate(company, year, byYear[year], byYear[year-1])
		metrics = append(metrics, yearMetrics...)
		qualities = append(qualities, yearQualities...)
	}

	return metrics, qualities
}

// record persists the run summary. Failing to record is logged but cannot
// fail the run; the summary has already been computed.
func (p *Pipeline) record(ctx context.Context, run *data.EtlRun) {
	if err := p.store.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("could not save run summary to database")
	}
}
