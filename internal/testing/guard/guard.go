package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("IWAS_TEST_MODE") == "" {
			_ = os.Setenv("IWAS_TEST_MODE", "1")
		}
	})
}
