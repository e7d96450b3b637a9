package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stwalsh4118/orchard/internal/editor"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
	"github.com/stwalsh4118/orchard/internal/satellite"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

// saveTimeout bounds one persistence call of a committed edit.
const saveTimeout = 15 * time.Second

// RefreshScheduler queues a satellite refresh. *satellite.Scheduler
// satisfies it.
type RefreshScheduler interface {
	Schedule(req satellite.Request)
}

// SaveResult reports the outcome of persisting one committed edit. It
// carries the measurement that was stored: the closed ring and its area for
// a boundary, the geometry and its tree count for a variety.
type SaveResult struct {
	// Kind is metrics.KindBoundary or metrics.KindVariety.
	Kind    string
	Variety int
	Err     error

	Ring         []geometry.Coord
	AreaHectares float64

	Geometry  geometry.Geometry
	TreeCount int
}

// Committer persists the edits of one editing session in the background.
// Boundary and Variety never block: a commit still waiting to be written is
// replaced by a newer commit of the same geometry, so only the latest state
// reaches the store. Writes of one session happen in commit order per
// geometry, boundary first.
type Committer struct {
	parcelID int64
	svc      ParcelService
	refresh  RefreshScheduler
	metrics  *metrics.Provider
	log      *logger.Logger
	onResult func(SaveResult)

	mu        sync.Mutex
	boundary  *editor.BoundaryCommit
	varieties map[int]editor.VarietyCommit
	closed    bool

	wake chan struct{}
	done chan struct{}
}

// NewCommitter starts a committer for parcelID. refresh, m and onResult may
// be nil. onResult is called from the committer goroutine.
func NewCommitter(parcelID int64, svc ParcelService, refresh RefreshScheduler, m *metrics.Provider, log *logger.Logger, onResult func(SaveResult)) *Committer {
	c := &Committer{
		parcelID:  parcelID,
		svc:       svc,
		refresh:   refresh,
		metrics:   m,
		log:       log.WithParcel(parcelID),
		onResult:  onResult,
		varieties: make(map[int]editor.VarietyCommit),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go c.run()
	return c
}

// Boundary queues a boundary commit.
func (c *Committer) Boundary(commit editor.BoundaryCommit) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.boundary = &commit
	c.mu.Unlock()
	c.signal()
}

// Variety queues a variety commit.
func (c *Committer) Variety(commit editor.VarietyCommit) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.varieties[commit.Variety] = commit
	c.mu.Unlock()
	c.signal()
}

// Close stops accepting commits, writes what is still queued and waits for
// the committer goroutine to exit.
func (c *Committer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.signal()
	<-c.done
}

func (c *Committer) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Committer) run() {
	defer close(c.done)
	for range c.wake {
		boundary, varieties, closed := c.take()
		if boundary != nil {
			c.saveBoundary(*boundary)
		}
		for _, v := range varieties {
			c.saveVariety(v)
		}
		if closed {
			return
		}
	}
}

// take empties the queue.
func (c *Committer) take() (*editor.BoundaryCommit, []editor.VarietyCommit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	boundary := c.boundary
	c.boundary = nil

	varieties := make([]editor.VarietyCommit, 0, len(c.varieties))
	for _, v := range c.varieties {
		varieties = append(varieties, v)
	}
	sort.Slice(varieties, func(i, j int) bool { return varieties[i].Variety < varieties[j].Variety })
	c.varieties = make(map[int]editor.VarietyCommit)

	return boundary, varieties, c.closed
}

func (c *Committer) saveBoundary(commit editor.BoundaryCommit) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := c.svc.SaveBoundary(ctx, c.parcelID, commit)
	c.report(SaveResult{
		Kind:         metrics.KindBoundary,
		Variety:      -1,
		Err:          err,
		Ring:         commit.Ring,
		AreaHectares: commit.AreaHectares,
	})
	if err != nil || c.refresh == nil {
		return
	}

	req := satellite.Request{ParcelID: c.parcelID, RequestedAt: time.Now().UTC()}
	if b, ok := spatial.BoundOf(commit.Ring); ok {
		req.Bounds = [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}
	c.refresh.Schedule(req)
}

func (c *Committer) saveVariety(commit editor.VarietyCommit) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := c.svc.SaveVariety(ctx, c.parcelID, commit)
	c.report(SaveResult{
		Kind:      metrics.KindVariety,
		Variety:   commit.Variety,
		Err:       err,
		Geometry:  commit.Geometry,
		TreeCount: commit.TreeCount,
	})
}

func (c *Committer) report(res SaveResult) {
	if res.Err != nil {
		c.metrics.EditRejected(metrics.ReasonSaveFailed)
		c.log.Error("Failed to save committed edit", res.Err, map[string]interface{}{
			"kind":    res.Kind,
			"variety": res.Variety,
		})
	} else {
		c.metrics.EditCommitted(res.Kind)
	}
	if c.onResult != nil {
		c.onResult(res)
	}
}
