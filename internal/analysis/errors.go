// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidNiche is returned when the requested niche is empty after
// normalization or exceeds the maximum length.
var ErrInvalidNiche = errors.New("niche must be a non-empty string of at most 100 characters")

// CollectionError reports that signal collection failed for a niche.
// The orchestrator returns it unchanged so callers can distinguish upstream
// failures from persistence failures.
type CollectionError struct {
	Niche string
	Err   error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("signal collection failed for niche %q: %v", e.Niche, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// PersistError reports that a completed analysis could not be stored.
type PersistError struct {
	Niche string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist analysis for niche %q: %v", e.Niche, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
