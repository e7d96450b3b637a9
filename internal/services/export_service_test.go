package services

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/orchard/internal/export"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
	"github.com/stwalsh4118/orchard/internal/models"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Put(_ context.Context, key string, val []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
}

func grove() *models.Parcel {
	return &models.Parcel{
		ID:       11,
		Name:     "Uliveto San Vito",
		Boundary: polygon(square),
		Area:     0.92,
		Varieties: []models.Variety{
			{Cultivar: "Leccino", Geometry: models.NewGeoJSON(point(12.5005, 41.9005))},
			{Cultivar: "Frantoio"},
		},
	}
}

func newExportTest(t *testing.T, parcel *models.Parcel, cache DocumentCache) (*MockParcelRepository, ExportService) {
	t.Helper()
	mockRepo, parcels := newTestService()
	mockRepo.On("FindByID", context.Background(), int64(11)).Return(parcel, nil)
	return mockRepo, NewExportService(parcels, cache, metrics.New(), logger.New("test"), 24)
}

func TestExportService_PDF(t *testing.T) {
	cache := newMapCache()
	_, svc := newExportTest(t, grove(), cache)
	ctx := context.Background()

	doc, err := svc.PDF(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "Uliveto_San_Vito_map.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
	assert.False(t, doc.Cached)

	again, err := svc.PDF(ctx, 11)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, doc.Data, again.Data)
	assert.Equal(t, 2, cache.gets)
}

func TestExportService_Preview(t *testing.T) {
	_, svc := newExportTest(t, grove(), nil)

	doc, err := svc.Preview(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "Uliveto_San_Vito_map.png", doc.Filename)
	assert.Equal(t, "image/png", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("\x89PNG")))
}

func TestExportService_NothingToExport(t *testing.T) {
	parcel := grove()
	parcel.Boundary = models.GeoJSON{}
	cache := newMapCache()
	_, svc := newExportTest(t, parcel, cache)

	_, err := svc.PDF(context.Background(), 11)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Empty(t, cache.data, "Expected nothing to be cached for a failed render")
}

func TestExportService_UnmodelledBoundaryHasNothingToExport(t *testing.T) {
	parcel := grove()
	require.NoError(t, parcel.Boundary.Scan(`{"type":"MultiPolygon","coordinates":[`+
		`[[[12.5,41.9],[12.501,41.9],[12.501,41.901],[12.5,41.9]]],`+
		`[[[12.6,41.9],[12.601,41.9],[12.601,41.901],[12.6,41.9]]]]}`))
	_, svc := newExportTest(t, parcel, nil)

	_, err := svc.PDF(context.Background(), 11)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestExportService_NotFound(t *testing.T) {
	mockRepo, parcels := newTestService()
	mockRepo.On("FindByID", context.Background(), int64(404)).Return(nil, nil)
	svc := NewExportService(parcels, nil, nil, logger.New("test"), 24)

	_, err := svc.PDF(context.Background(), 404)
	assert.ErrorIs(t, err, ErrParcelNotFound)
}

func TestContentKey_ChangesWithContent(t *testing.T) {
	base := ExportView(grove())

	k1, err := contentKey(FormatPDF, base)
	require.NoError(t, err)
	k2, err := contentKey(FormatPDF, ExportView(grove()))
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	moved := ExportView(grove())
	moved.Varieties[0].Geometry = point(12.5006, 41.9005)
	k3, err := contentKey(FormatPDF, moved)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := contentKey(FormatPNG, base)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestExportView(t *testing.T) {
	view := ExportView(grove())

	assert.Equal(t, "Uliveto San Vito", view.Name)
	assert.Equal(t, 0.92, view.AreaHectares)
	require.Len(t, view.Varieties, 2)
	assert.Equal(t, export.Variety{Cultivar: "Leccino", Geometry: point(12.5005, 41.9005)}, view.Varieties[0])
	assert.Nil(t, view.Varieties[1].Geometry)
	assert.IsType(t, geometry.Polygon{}, view.Boundary)
}

func TestRenderPDF_ReportsPages(t *testing.T) {
	view := ExportView(grove())
	for i := 0; i < 8; i++ {
		view.Varieties = append(view.Varieties, export.Variety{Cultivar: "Extra"})
	}

	data, res, err := RenderPDF(export.NewRenderer(export.DefaultLayout), view)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, res.LegendPages)
}
