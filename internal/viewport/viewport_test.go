package viewport

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

type MockFitter struct {
	mock.Mock
}

func (m *MockFitter) FitBounds(b orb.Bound, padding int, maxZoom float64) {
	m.Called(b, padding, maxZoom)
}

var parcel = geometry.Polygon{Ring: []geometry.Coord{
	{12.5, 41.9}, {12.501, 41.9}, {12.501, 41.901}, {12.5, 41.901}, {12.5, 41.9},
}}

var parcelBound = orb.Bound{Min: orb.Point{12.5, 41.9}, Max: orb.Point{12.501, 41.901}}

func TestController_FitIsDeferredToFrame(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("FitBounds", parcelBound, 24, 17.0).Return().Once()
	queue := &FrameQueue{}
	c := NewController(fitter, queue, Options{Padding: 24, MaxZoom: 17})

	assert.True(t, c.Show(parcel))
	fitter.AssertNotCalled(t, "FitBounds", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, queue.Pending())

	queue.Flush()
	fitter.AssertExpectations(t)
	b, ok := c.Applied()
	require.True(t, ok)
	assert.Equal(t, parcelBound, b)
}

func TestController_CoalescesWithinFrame(t *testing.T) {
	fitter := new(MockFitter)
	queue := &FrameQueue{}
	c := NewController(fitter, queue, Options{})

	latest := orb.Bound{Min: orb.Point{12.4, 41.8}, Max: orb.Point{12.6, 42.0}}
	fitter.On("FitBounds", latest, DefaultPadding, float64(DefaultMaxZoom)).Return().Once()

	c.Show(parcel)
	c.Show(geometry.Point{Coord: geometry.Coord{12.45, 41.85}})
	c.ShowBound(latest)
	assert.Equal(t, 1, queue.Pending())

	queue.Flush()
	fitter.AssertExpectations(t)
	fitter.AssertNumberOfCalls(t, "FitBounds", 1)
}

func TestController_SkipsEqualWithinEpsilon(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("FitBounds", mock.Anything, mock.Anything, mock.Anything).Return()
	queue := &FrameQueue{}
	c := NewController(fitter, queue, Options{Epsilon: 1e-6})

	c.Show(parcel)
	queue.Flush()

	nudged := orb.Bound{
		Min: orb.Point{parcelBound.Min[0] + 1e-8, parcelBound.Min[1]},
		Max: parcelBound.Max,
	}
	assert.False(t, c.ShowBound(nudged))
	assert.Zero(t, queue.Pending())

	moved := orb.Bound{Min: orb.Point{12.49, 41.9}, Max: parcelBound.Max}
	assert.True(t, c.ShowBound(moved))
	queue.Flush()
	fitter.AssertNumberOfCalls(t, "FitBounds", 2)
}

func TestController_PendingRevertedToApplied(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("FitBounds", mock.Anything, mock.Anything, mock.Anything).Return()
	queue := &FrameQueue{}
	c := NewController(fitter, queue, Options{})

	c.Show(parcel)
	queue.Flush()

	c.ShowBound(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}})
	c.ShowBound(parcelBound)
	queue.Flush()
	fitter.AssertNumberOfCalls(t, "FitBounds", 1)
}

func TestController_EmptyGeometriesIgnored(t *testing.T) {
	fitter := new(MockFitter)
	queue := &FrameQueue{}
	c := NewController(fitter, queue, Options{})

	assert.False(t, c.Show(nil, nil))
	assert.Zero(t, queue.Pending())
	_, ok := c.Applied()
	assert.False(t, ok)
}

func TestController_ResetForcesFit(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("FitBounds", mock.Anything, mock.Anything, mock.Anything).Return()
	queue := &FrameQueue{}
	c := NewController(fitter, queue, Options{})

	c.Show(parcel)
	queue.Flush()
	c.Reset()
	assert.True(t, c.Show(parcel))
	queue.Flush()
	fitter.AssertNumberOfCalls(t, "FitBounds", 2)
}

func TestFrameQueue_RequestsDuringFlushWait(t *testing.T) {
	q := &FrameQueue{}
	var ran []int
	q.RequestFrame(func() {
		ran = append(ran, 1)
		q.RequestFrame(func() { ran = append(ran, 2) })
	})

	assert.Equal(t, 1, q.Flush())
	assert.Equal(t, []int{1}, ran)
	assert.Equal(t, 1, q.Flush())
	assert.Equal(t, []int{1, 2}, ran)
}
