// Package id provides unique identifier generation for jobs.
package id

import (
	"strings"

	"github.com/google/uuid"
)

const prefix = "job-"

// Generate creates a new unique job ID.
// Format: job-<uuid>
// Example: job-6f1c2b7e-7d0a-4c1e-9a55-2f0c3e9d8b41
func Generate() string {
	return prefix + uuid.NewString()
}

// Valid reports whether s has the format produced by Generate.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
