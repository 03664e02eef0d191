package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ARIA_TEST_MODE") == "" {
			_ = os.Setenv("ARIA_TEST_MODE", "1")
		}
	})
}
