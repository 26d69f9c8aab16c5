// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package analysis

import "strings"

// maxNicheLength bounds the normalized niche key.
const maxNicheLength = 100

// Normalize lowercases and trims the requested niche, producing the
// canonical key used for the cache, the store and request coalescing.
// Returns ErrInvalidNiche when the result is empty or too long.
func Normalize(niche string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(niche))
	if norm == "" || len(norm) > maxNicheLength {
		return "", ErrInvalidNiche
	}
	return norm, nil
}
