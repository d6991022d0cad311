package backend

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper cancels open records that outlived the session TTL. It is the
// in-repo external canceller: a kiosk whose record is swept observes the
// absence on its next poll and returns to the badge gate.
type Sweeper struct {
	service  *Service
	maxAge   time.Duration
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper cancelling records older than maxAge. A
// maxAge of zero disables sweeping.
func NewSweeper(service *Service, maxAge time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		service:  service,
		maxAge:   maxAge,
		interval: time.Minute,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the sweep loop.
func (sw *Sweeper) Start() {
	if sw.maxAge <= 0 {
		return
	}
	sw.wg.Add(1)
	go sw.loop()
	log.Printf("Sweeper started (max session age %s)", sw.maxAge)
}

// Stop gracefully stops the sweeper.
func (sw *Sweeper) Stop() {
	sw.cancel()
	sw.wg.Wait()
}

func (sw *Sweeper) loop() {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.ctx.Done():
			return
		case <-ticker.C:
			sw.sweep()
		}
	}
}

func (sw *Sweeper) sweep() {
	cutoff := time.Now().UTC().Add(-sw.maxAge)
	n, err := sw.service.CancelStaleRecords(cutoff)
	if err != nil {
		log.Printf("Sweep error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Swept %d stale open record(s)", n)
	}
}
