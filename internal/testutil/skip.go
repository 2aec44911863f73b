package testutil

import (
	"os"
	"testing"
)

// SkipIfNoNetwork skips the test if CHANCORE_TEST_SKIP_NETWORK is set.
// Use this for tests that bind local TCP listeners, which may not be
// available in sandboxed environments.
func SkipIfNoNetwork(t *testing.T) {
	t.Helper()
	if os.Getenv("CHANCORE_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: CHANCORE_TEST_SKIP_NETWORK is set")
	}
}
