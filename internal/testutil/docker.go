// Package testutil starts throwaway database containers for integration
// tests.
package testutil

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

func skipWithoutDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
