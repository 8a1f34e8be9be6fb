package safe

import (
	"github.com/Kesh3805/job-portal/logger"
)

// Go starts a goroutine that recovers from panic, so a failing
// fire-and-forget side effect never takes the gateway down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
