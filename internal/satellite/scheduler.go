package satellite

import (
	"context"
	"sync"
	"time"

	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
)

// publishTimeout bounds a single delivery attempt.
const publishTimeout = 10 * time.Second

// Scheduler delays refresh requests. Scheduling a parcel that already has a
// pending request restarts its delay with the newer request, so a burst of
// boundary edits produces one refresh.
type Scheduler struct {
	delay   time.Duration
	pub     Publisher
	log     *logger.Logger
	metrics *metrics.Provider

	mu      sync.Mutex
	pending map[int64]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewScheduler returns a Scheduler publishing through pub after delay.
// m may be nil.
func NewScheduler(delay time.Duration, pub Publisher, log *logger.Logger, m *metrics.Provider) *Scheduler {
	return &Scheduler{
		delay:   delay,
		pub:     pub,
		log:     log,
		metrics: m,
		pending: make(map[int64]*time.Timer),
	}
}

// Schedule queues req and returns immediately.
func (s *Scheduler) Schedule(req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if t, ok := s.pending[req.ParcelID]; ok && t.Stop() {
		s.wg.Done()
	}

	s.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		if s.pending[req.ParcelID] == timer {
			delete(s.pending, req.ParcelID)
		}
		s.mu.Unlock()

		s.publish(req)
	})
	s.pending[req.ParcelID] = timer
}

func (s *Scheduler) publish(req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if err := s.pub.Publish(ctx, req); err != nil {
		s.metrics.SatelliteRefresh("failed")
		s.log.Error("Satellite refresh failed", err, map[string]interface{}{
			"parcel_id": req.ParcelID,
		})
		return
	}
	s.metrics.SatelliteRefresh("sent")
	s.log.Debug("Satellite refresh sent", map[string]interface{}{
		"parcel_id": req.ParcelID,
	})
}

// Pending reports how many parcels are waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close drops pending requests and waits for in-flight deliveries.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.pending {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
