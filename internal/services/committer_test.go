package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/orchard/internal/editor"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
	"github.com/stwalsh4118/orchard/internal/satellite"
)

type recordingScheduler struct {
	mu   sync.Mutex
	reqs []satellite.Request
}

func (s *recordingScheduler) Schedule(req satellite.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
}

func (s *recordingScheduler) requests() []satellite.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]satellite.Request(nil), s.reqs...)
}

func collect(results chan SaveResult, n int, t *testing.T) []SaveResult {
	t.Helper()
	out := make([]SaveResult, 0, n)
	for len(out) < n {
		select {
		case r := <-results:
			out = append(out, r)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d results", len(out), n)
		}
	}
	return out
}

func TestCommitter_SavesAndSchedulesRefresh(t *testing.T) {
	mockRepo, service := newTestService()
	mockRepo.On("UpdateBoundary", mock.Anything, int64(1), polygon(square), 0.92).Return(nil)
	mockRepo.On("UpdateVarietyGeometry", mock.Anything, int64(1), 0, mock.Anything, 1).Return(nil)

	refresh := &recordingScheduler{}
	results := make(chan SaveResult, 4)
	c := NewCommitter(1, service, refresh, metrics.New(), logger.New("test"), func(r SaveResult) { results <- r })

	c.Boundary(editor.BoundaryCommit{Ring: geometry.CloseRing(square), AreaHectares: 0.92})
	got := collect(results, 1, t)
	c.Variety(editor.VarietyCommit{Variety: 0, Geometry: point(12.5005, 41.9005), TreeCount: 1})
	got = append(got, collect(results, 1, t)...)
	c.Close()

	assert.Equal(t, metrics.KindBoundary, got[0].Kind)
	assert.NoError(t, got[0].Err)
	assert.Equal(t, 0.92, got[0].AreaHectares)
	assert.Len(t, got[0].Ring, 5)
	assert.Equal(t, metrics.KindVariety, got[1].Kind)
	assert.NoError(t, got[1].Err)
	assert.Equal(t, 1, got[1].TreeCount)
	assert.Equal(t, point(12.5005, 41.9005), got[1].Geometry)

	reqs := refresh.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(1), reqs[0].ParcelID)
	assert.Equal(t, [4]float64{12.5, 41.9, 12.501, 41.901}, reqs[0].Bounds)
	mockRepo.AssertExpectations(t)
}

func TestCommitter_FailureIsReportedWithoutRefresh(t *testing.T) {
	mockRepo, service := newTestService()
	mockRepo.On("UpdateBoundary", mock.Anything, int64(2), mock.Anything, mock.Anything).Return(errors.New("database down"))

	refresh := &recordingScheduler{}
	results := make(chan SaveResult, 1)
	c := NewCommitter(2, service, refresh, nil, logger.New("test"), func(r SaveResult) { results <- r })
	defer c.Close()

	c.Boundary(editor.BoundaryCommit{Ring: square, AreaHectares: 0.92})
	got := collect(results, 1, t)

	assert.Error(t, got[0].Err)
	assert.Empty(t, refresh.requests())
}

func TestCommitter_CoalescesQueuedCommits(t *testing.T) {
	mockRepo, service := newTestService()

	// Hold the first write so later commits queue up behind it.
	release := make(chan time.Time)
	first := mockRepo.On("UpdateVarietyGeometry", mock.Anything, int64(3), 0, mock.Anything, 1).Return(nil).Once()
	first.WaitFor = release
	mockRepo.On("UpdateVarietyGeometry", mock.Anything, int64(3), 0, mock.Anything, 3).Return(nil).Once()

	results := make(chan SaveResult, 8)
	c := NewCommitter(3, service, nil, nil, logger.New("test"), func(r SaveResult) { results <- r })

	c.Variety(editor.VarietyCommit{Variety: 0, TreeCount: 1})
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.varieties) == 0
	}, time.Second, time.Millisecond, "Expected first commit to be taken")

	c.Variety(editor.VarietyCommit{Variety: 0, TreeCount: 2})
	c.Variety(editor.VarietyCommit{Variety: 0, TreeCount: 3})
	close(release)

	got := collect(results, 2, t)
	c.Close()

	assert.Len(t, got, 2, "Expected the two queued commits to be merged")
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "UpdateVarietyGeometry", 2)
}

func TestCommitter_CloseFlushesAndIgnoresLateCommits(t *testing.T) {
	mockRepo, service := newTestService()
	mockRepo.On("UpdateVarietyGeometry", mock.Anything, int64(4), mock.Anything, mock.Anything, mock.Anything).Return(nil)

	c := NewCommitter(4, service, nil, nil, logger.New("test"), nil)
	c.Variety(editor.VarietyCommit{Variety: 0})
	c.Variety(editor.VarietyCommit{Variety: 1})
	c.Close()
	c.Close()

	c.Variety(editor.VarietyCommit{Variety: 2})

	calls := 0
	for _, call := range mockRepo.Calls {
		if call.Method == "UpdateVarietyGeometry" {
			calls++
			assert.NotEqual(t, 2, call.Arguments.Int(2))
		}
	}
	assert.Equal(t, 2, calls)
}

func TestCommitter_SavesVarietiesInOrder(t *testing.T) {
	mockRepo, service := newTestService()

	var mu sync.Mutex
	var order []int
	release := make(chan time.Time)
	mockRepo.On("UpdateVarietyGeometry", mock.Anything, int64(5), 9, mock.Anything, mock.Anything).
		Return(nil).Once().WaitFor = release
	mockRepo.On("UpdateVarietyGeometry", mock.Anything, int64(5), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			order = append(order, args.Int(2))
			mu.Unlock()
		}).Return(nil)

	c := NewCommitter(5, service, nil, nil, logger.New("test"), nil)
	c.Variety(editor.VarietyCommit{Variety: 9})
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.varieties) == 0
	}, time.Second, time.Millisecond)

	c.Variety(editor.VarietyCommit{Variety: 2})
	c.Variety(editor.VarietyCommit{Variety: 0})
	c.Variety(editor.VarietyCommit{Variety: 1})
	close(release)
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}
