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
	"errors"
	"fmt"
)

// Error describes a failed provider call. Transient errors (network faults,
// HTTP 5xx, provider rate-limit responses) may be retried; everything else
// fails the call immediately.
type Error struct {
	Symbol     string
	Function   string
	StatusCode int
	Transient  bool
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s %s: status %d: %s", e.Function, e.Symbol, e.StatusCode, msg)
	}

	return fmt.Sprintf("provider %s %s: %s", e.Function, e.Symbol, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a provider error that is safe to retry.
func IsTransient(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Transient
	}

	return false
}
