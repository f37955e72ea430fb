package replay

import (
	"sync"
	"time"
)

// Scheduler runs fn every period until the returned stop func is called.
// stop must not wait for an in-flight fn.
type Scheduler interface {
	Every(period time.Duration, fn func()) (stop func())
}

// TickerScheduler is the wall-clock Scheduler backed by time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
