// Package testing switches the binaries into test mode when imported, so
// their main functions return before touching PostgreSQL, Redis or Gotenberg.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("DOCPLAN_TEST_MODE", "1")
		for key, value := range map[string]string{
			"GOTENBERG_URL": "http://127.0.0.1:0",
			"REDIS_ADDR":    "127.0.0.1:0",
		} {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs m with test mode enabled.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
