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
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/windborne/finetl/data"
	"github.com/windborne/finetl/store"
)

// Runner executes one full pipeline invocation.
type Runner interface {
	Run(ctx context.Context) (*data.EtlRun, error)
}

// RunHistory reads persisted run summaries.
type RunHistory interface {
	LatestRun(ctx context.Context) (*data.EtlRun, error)
}

// Server is the control surface exposed to the workflow scheduler. It only
// starts runs and reports status; all pipeline semantics live in etl.
type Server struct {
	runner  Runner
	history RunHistory
	router  chi.Router
}

func NewServer(runner Runner, history RunHistory) *Server {
	srv := &Server{
		runner:  runner,
		history: history,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger)

	router.Post("/run-etl", srv.handleRunETL)
	router.Get("/status", srv.handleStatus)
	router.Get("/health", srv.handleHealth)

	srv.router = router
	return srv
}

func (srv *Server) Handler() http.Handler {
	return srv.router
}

func (srv *Server) ListenAndServe(addr string) error {
	log.Info().Str("Address", addr).Msg("control surface listening")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return httpServer.ListenAndServe()
}

// handleRunETL synchronously executes one pipeline invocation and returns
// the run summary. A FAILED run reports 500 so the scheduler's alerting can
// key off the HTTP status alone.
func (srv *Server) handleRunETL(w http.ResponseWriter, r *http.Request) {
	run, err := srv.runner.Run(r.Context())
	if err != nil && run == nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	code := http.StatusOK
	if run.Status == data.RunFailed {
		code = http.StatusInternalServerError
	}

	respondJSON(w, code, run)
}

func (srv *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run, err := srv.history.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoRuns) {
			respondError(w, http.StatusNotFound, "no etl runs recorded")
			return
		}

		log.Error().Err(err).Msg("could not load latest run")
		respondError(w, http.StatusInternalServerError, "could not load latest run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (srv *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "finetl",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("could not encode response")
	}
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().Str("Method", r.Method).Str("Path", r.URL.Path).
			Dur("Elapsed", time.Since(start)).Msg("request handled")
	})
}
