// Package guard forces test mode for packages that import it, keeping
// binaries from starting real runtimes while their tests run.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PARLEY_TEST_MODE") == "" {
			_ = os.Setenv("PARLEY_TEST_MODE", "1")
		}
	})
}
