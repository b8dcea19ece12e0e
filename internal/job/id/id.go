// Package id provides unique identifier generation for jobs.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix starts every job ID.
const Prefix = "job-"

// Generate creates a new unique job ID.
// Format: job-<unix seconds>-<8 hex>
// Example: job-1701432000-a1b2c3d4
func Generate() string {
	return fmt.Sprintf("%s%d-%s", Prefix, time.Now().Unix(), uuid.NewString()[:8])
}

// Valid reports whether s looks like an ID made by Generate.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return false
	}
	ts, random, ok := strings.Cut(rest, "-")
	if !ok || ts == "" || len(random) != 8 {
		return false
	}
	for _, r := range ts {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, r := range random {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
