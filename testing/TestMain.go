// Package testing puts the process in test mode when imported by a test
// binary, so entrypoints and config loading skip real side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_POS_TEST_MODE", "1")
		if os.Getenv("BACKOFFICE_URL") == "" {
			_ = os.Setenv("BACKOFFICE_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
