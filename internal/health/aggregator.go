// Package health batches API call outcomes in memory and flushes them to the
// database on an interval, keeping per-call bookkeeping off the hot path.
package health

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/streamherald/streamherald-bot/internal/database"
)

// Aggregator counts calls against one upstream service.
type Aggregator struct {
	repo               *database.Repository
	serviceName        string
	totalRequests      atomic.Uint64
	successfulRequests atomic.Uint64
	stop               chan struct{}
}

func NewAggregator(repo *database.Repository, serviceName string) *Aggregator {
	return &Aggregator{
		repo:        repo,
		serviceName: serviceName,
		stop:        make(chan struct{}),
	}
}

// RecordCall increments the in-memory counters. Non-blocking; safe from any
// goroutine.
func (a *Aggregator) RecordCall(success bool) {
	a.totalRequests.Add(1)
	if success {
		a.successfulRequests.Add(1)
	}
}

// FlushToDB writes the accumulated counts to the database and resets them.
func (a *Aggregator) FlushToDB() {
	total := a.totalRequests.Swap(0)
	successful := a.successfulRequests.Swap(0)

	if total == 0 {
		return
	}

	if err := a.repo.UpdateAPIHealthBulk(a.serviceName, total, successful); err != nil {
		// Counters were already reset; this window's stats are lost but the
		// next flush proceeds normally.
		log.Printf("Error flushing API health stats for service %s: %v", a.serviceName, err)
	}
}

// Start launches the periodic flush goroutine. Stop ends it after a final
// flush.
func (a *Aggregator) Start(interval time.Duration) {
	log.Printf("Health aggregator for %q started with a %s flush interval", a.serviceName, interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.FlushToDB()
			case <-a.stop:
				a.FlushToDB()
				return
			}
		}
	}()
}

func (a *Aggregator) Stop() {
	close(a.stop)
}
