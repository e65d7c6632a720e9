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
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/windborne/finetl/data"
)

const DefaultBaseURL = "https://www.alphavantage.co"

// statementFunctions maps statement types to Alpha Vantage API functions.
var statementFunctions = map[data.StatementType]string{
	data.IncomeStatement: "INCOME_STATEMENT",
	data.BalanceSheet:    "BALANCE_SHEET",
	data.CashFlow:        "CASH_FLOW",
}

type Config struct {
	APIKey     string
	BaseURL    string
	Delay      time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// AlphaVantage fetches raw statement payloads from the Alpha Vantage REST
// API. The limiter enforces the minimum inter-call delay across every call
// made through this client; retries wait on the same limiter so a retried
// attempt counts against the quota like any other request. The client never
// caches.
type AlphaVantage struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     Config
}

func NewAlphaVantage(cfg Config) *AlphaVantage {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Delay <= 0 {
		// Alpha Vantage free tier allows 5 calls per minute
		cfg.Delay = 12 * time.Second
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	if cfg.Backoff <= 0 {
		cfg.Backoff = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetQueryParam("apikey", cfg.APIKey).
		SetTimeout(30 * time.Second)

	return &AlphaVantage{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		cfg:     cfg,
	}
}

// FetchStatement retrieves one statement type for one company. Transient
// failures are retried up to the configured attempt count with a fixed
// backoff; a fatal failure returns immediately.
func (av *AlphaVantage) FetchStatement(ctx context.Context, symbol string, statementType data.StatementType) (json.RawMessage, error) {
	function, ok := statementFunctions[statementType]
	if !ok {
		return nil, &Error{Symbol: symbol, Function: string(statementType), Message: "unknown statement type"}
	}

	var lastErr error

	for attempt := 0; attempt < av.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Str("Symbol", symbol).Str("Function", function).
				Int("Attempt", attempt).Msg("retrying provider call after transient failure")

			timer := time.NewTimer(av.cfg.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		if err := av.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		payload, err := av.fetchOnce(ctx, symbol, function)
		if err == nil {
			return payload, nil
		}

		if !IsTransient(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

func (av *AlphaVantage) fetchOnce(ctx context.Context, symbol string, function string) (json.RawMessage, error) {
	resp, err := av.client.R().
		SetContext(ctx).
		SetQueryParam("function", function).
		SetQueryParam("symbol", symbol).
		Get("/query")
	if err != nil {
		return nil, &Error{Symbol: symbol, Function: function, Transient: true, Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, &Error{Symbol: symbol, Function: function, StatusCode: resp.StatusCode(),
			Transient: true, Message: "rate limited"}
	case resp.StatusCode() >= 500:
		return nil, &Error{Symbol: symbol, Function: function, StatusCode: resp.StatusCode(),
			Transient: true, Message: "server error"}
	case resp.StatusCode() >= 400:
		return nil, &Error{Symbol: symbol, Function: function, StatusCode: resp.StatusCode(),
			Message: "client error"}
	}

	body := resp.Body()

	// Alpha Vantage reports application errors inside a 200 response: an
	// "Error Message" key is a bad request, a "Note" key is the rate-limit
	// signal.
	var probe struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
	}

	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &Error{Symbol: symbol, Function: function, Message: "malformed JSON response", Err: err}
	}

	if probe.ErrorMessage != "" {
		return nil, &Error{Symbol: symbol, Function: function, Message: probe.ErrorMessage}
	}

	if probe.Note != "" {
		return nil, &Error{Symbol: symbol, Function: function, Transient: true, Message: probe.Note}
	}

	return body, nil
}
