// Package viewport keeps the map framed on the geometries being shown.
//
// Bounds changes are compared against the last box actually applied and
// dropped when equal within a tolerance. Changes that survive are applied on
// the next frame, and several changes arriving before that frame collapse into
// one fit of the latest box.
package viewport

import (
	"github.com/paulmach/orb"

	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

// Defaults used when Options leaves a field at zero.
const (
	DefaultPadding = 40
	DefaultMaxZoom = 18
	DefaultEpsilon = 1e-9
)

// Fitter is the map operation that frames a box.
type Fitter interface {
	FitBounds(b orb.Bound, padding int, maxZoom float64)
}

// FrameScheduler runs fn once on the next frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// Options configures a Controller.
type Options struct {
	// Padding around the fitted box, in screen pixels.
	Padding int
	// MaxZoom caps the zoom level a fit may reach.
	MaxZoom float64
	// Epsilon is the per-edge tolerance, in degrees, under which two boxes
	// are considered equal.
	Epsilon float64
}

func (o Options) withDefaults() Options {
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

// Controller fits the map to geometries. It is not safe for concurrent use;
// the scheduler must run its callbacks on the goroutine calling Show.
type Controller struct {
	fitter    Fitter
	scheduler FrameScheduler
	opts      Options

	applied    orb.Bound
	hasApplied bool
	pending    orb.Bound
	hasPending bool
}

// NewController creates a controller that has not fitted anything yet.
func NewController(fitter Fitter, scheduler FrameScheduler, opts Options) *Controller {
	return &Controller{
		fitter:    fitter,
		scheduler: scheduler,
		opts:      opts.withDefaults(),
	}
}

// Show requests a fit to the combined bounds of geoms. Geometries without
// coordinates are ignored; when none has any, nothing happens. It reports
// whether a fit is now pending.
func (c *Controller) Show(geoms ...geometry.Geometry) bool {
	var coords []geometry.Coord
	for _, g := range geoms {
		coords = append(coords, spatial.Coords(g)...)
	}
	b, ok := spatial.BoundOf(coords)
	if !ok {
		return c.hasPending
	}
	return c.ShowBound(b)
}

// ShowBound requests a fit to b.
func (c *Controller) ShowBound(b orb.Bound) bool {
	if c.hasPending {
		c.pending = b
		return true
	}
	if c.hasApplied && spatial.BoundsEqual(c.applied, b, c.opts.Epsilon) {
		return false
	}
	c.pending = b
	c.hasPending = true
	c.scheduler.RequestFrame(c.flush)
	return true
}

// Applied returns the last box handed to the fitter.
func (c *Controller) Applied() (orb.Bound, bool) {
	return c.applied, c.hasApplied
}

// Reset forgets the last applied box so the next Show always fits, e.g.
// after the map was resized.
func (c *Controller) Reset() {
	c.hasApplied = false
}

func (c *Controller) flush() {
	if !c.hasPending {
		return
	}
	b := c.pending
	c.hasPending = false
	if c.hasApplied && spatial.BoundsEqual(c.applied, b, c.opts.Epsilon) {
		return
	}
	c.fitter.FitBounds(b, c.opts.Padding, c.opts.MaxZoom)
	c.applied = b
	c.hasApplied = true
}
