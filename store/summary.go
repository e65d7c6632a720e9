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
	"strings"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the statement library in markdown
func (myStore *Store) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# WindBorne Financial Statement Library\n")
	builder.WriteString("## Details\n\n")

	var statementCount, metricCount int
	if err := myStore.Pool.QueryRow(ctx, "SELECT count(*) FROM financial_statements").Scan(&statementCount); err != nil {
		return "", err
	}
	if err := myStore.Pool.QueryRow(ctx, "SELECT count(*) FROM calculated_metrics").Scan(&metricCount); err != nil {
		return "", err
	}

	companies, err := myStore.Companies(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Companies: %d\n", len(companies))); err != nil {
		return "", err
	}
	if _, err := builder.WriteString(p.Sprintf("  * Statement Records: %d\n", statementCount)); err != nil {
		return "", err
	}
	if _, err := builder.WriteString(p.Sprintf("  * Calculated Metrics: %d\n\n", metricCount)); err != nil {
		return "", err
	}

	lastRun, err := myStore.LatestRun(ctx)
	switch {
	case errors.Is(err, ErrNoRuns):
		builder.WriteString("Last Run: Never\n\n")
	case err != nil:
		return "", err
	default:
		age := timeago.English.Format(lastRun.RunDate)
		builder.WriteString(fmt.Sprintf("Last Run: %s (%s) [%s]\n\n", age,
			lastRun.RunDate.Local().Format("01/02/2006 15:04"), lastRun.Status))
	}

	builder.WriteString("## Companies\n\n")

	for _, company := range companies {
		age := "never refreshed"
		if !company.Updated.IsZero() {
			age = timeago.English.Format(company.Updated)
		}

		if _, err := builder.WriteString(p.Sprintf("  * %s %s (%s / %s, priority %d) updated %s\n",
			company.Symbol, company.Name, company.Sector, company.Industry,
			company.Priority, age)); err != nil {
			return "", err
		}
	}

	return builder.String(), nil
}
