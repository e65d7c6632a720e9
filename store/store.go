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
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/windborne/finetl/data"
)

var (
	ErrUnknownCompany = errors.New("company not found")
	ErrNoRuns         = errors.New("no etl runs recorded")
)

// Store provides all database access for the pipeline and control surface.
type Store struct {
	DBUrl string
	Pool  *pgxpool.Pool
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		DBUrl: dbURL,
		Pool:  pool,
	}, nil
}

func (myStore *Store) Close() {
	myStore.Pool.Close()
}

// CompanyBySymbol looks up a single company by its ticker symbol.
func (myStore *Store) CompanyBySymbol(ctx context.Context, symbol string) (*data.Company, error) {
	company := &data.Company{}
	err := pgxscan.Get(ctx, myStore.Pool, company,
		`SELECT id, symbol, name, sector, industry, priority, updated_at
		 FROM companies WHERE symbol = $1`, symbol)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCompany, symbol)
		}
		return nil, err
	}

	return company, nil
}

// CompaniesForRun returns the companies matching the configured symbols in
// processing order: highest priority first, least-recently-refreshed first
// within a priority. Symbols without a companies row are simply absent from
// the result.
func (myStore *Store) CompaniesForRun(ctx context.Context, symbols []string) ([]*data.Company, error) {
	var companies []*data.Company
	err := pgxscan.Select(ctx, myStore.Pool, &companies,
		`SELECT id, symbol, name, sector, industry, priority, updated_at
		 FROM companies WHERE symbol = ANY($1)
		 ORDER BY priority DESC, updated_at ASC, symbol ASC`, symbols)
	return companies, err
}

// Companies returns the full configured universe.
func (myStore *Store) Companies(ctx context.Context) ([]*data.Company, error) {
	var companies []*data.Company
	err := pgxscan.Select(ctx, myStore.Pool, &companies,
		`SELECT id, symbol, name, sector, industry, priority, updated_at
		 FROM companies ORDER BY priority DESC, symbol ASC`)
	return companies, err
}

// SeedCompanies inserts or updates the company universe. Matching is by
// symbol; an existing company keeps its id and statement history.
func (myStore *Store) SeedCompanies(ctx context.Context, companies []*data.Company) error {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error().Err(err).Msg("error rolling back seed transaction")
		}
	}()

	for _, company := range companies {
		_, err := tx.Exec(ctx, `INSERT INTO companies (
			"symbol", "name", "sector", "industry", "priority"
		) VALUES (
			$1, $2, $3, $4, $5
		) ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			priority = EXCLUDED.priority`,
			company.Symbol, company.Name, company.Sector, company.Industry, company.Priority)
		if err != nil {
			return fmt.Errorf("seeding company %s: %w", company.Symbol, err)
		}
	}

	return tx.Commit(ctx)
}

// UpsertStatements writes one batch of statement records inside a single
// transaction. A failure rolls the whole batch back; the caller treats the
// error as fatal for that company's statement, not for the run.
func (myStore *Store) UpsertStatements(ctx context.Context, records []*data.StatementRecord) error {
	if len(records) == 0 {
		return nil
	}

	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error().Err(err).Msg("error rolling back statement transaction")
		}
	}()

	for _, rec := range records {
		if err := rec.SaveDB(ctx, tx); err != nil {
			return fmt.Errorf("upserting statement %s/%s/%d/%s: %w",
				rec.Symbol, rec.StatementType, rec.FiscalYear, rec.MetricName, err)
		}
	}

	return tx.Commit(ctx)
}

// UpsertMetrics writes calculated metrics inside a single transaction.
func (myStore *Store) UpsertMetrics(ctx context.Context, metrics []*data.CalculatedMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error().Err(err).Msg("error rolling back metric transaction")
		}
	}()

	for _, metric := range metrics {
		if err := metric.SaveDB(ctx, tx); err != nil {
			return fmt.Errorf("upserting metric %s/%d/%s: %w",
				metric.Symbol, metric.FiscalYear, metric.MetricName, err)
		}
	}

	return tx.Commit(ctx)
}

// TouchCompany bumps the company refresh timestamp after a successful load.
func (myStore *Store) TouchCompany(ctx context.Context, companyID int64) error {
	_, err := myStore.Pool.Exec(ctx,
		`UPDATE companies SET updated_at = now() WHERE id = $1`, companyID)
	return err
}

// SaveRun appends the run summary row. Run history is immutable; there is
// no conflict target.
func (myStore *Store) SaveRun(ctx context.Context, run *data.EtlRun) error {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error().Err(err).Msg("error rolling back run transaction")
		}
	}()

	if err := run.SaveDB(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// StatementYears lists the fiscal years with stored statements for a
// company, most recent first.
func (myStore *Store) StatementYears(ctx context.Context, companyID int64) ([]int, error) {
	var years []int
	err := pgxscan.Select(ctx, myStore.Pool, &years,
		`SELECT DISTINCT fiscal_year FROM financial_statements
		 WHERE company_id = $1 ORDER BY fiscal_year DESC`, companyID)
	return years, err
}

// StatementValues loads the stored statement values for one company and
// fiscal year, keyed by metric name.
func (myStore *Store) StatementValues(ctx context.Context, companyID int64, fiscalYear int) (map[string]decimal.Decimal, error) {
	rows, err := myStore.Pool.Query(ctx,
		`SELECT metric_name, metric_value::text FROM financial_statements
		 WHERE company_id = $1 AND fiscal_year = $2`, companyID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]decimal.Decimal)

	for rows.Next() {
		var (
			name string
			text string
		)
		if err := rows.Scan(&name, &text); err != nil {
			return nil, err
		}

		value, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("stored value for %s is not numeric: %w", name, err)
		}
		values[name] = value
	}

	return values, rows.Err()
}
