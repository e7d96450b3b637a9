package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stwalsh4118/orchard/internal/cache"
	"github.com/stwalsh4118/orchard/internal/export"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
	"github.com/stwalsh4118/orchard/internal/models"
)

// Export formats.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// ErrNothingToExport is returned for parcels without a drawable boundary.
var ErrNothingToExport = errors.New("parcel has nothing to export")

// DocumentCache stores rendered documents by content key.
// *cache.ExportCache satisfies it.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, val []byte)
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
	Cached      bool
}

// ExportService renders parcels to documents.
type ExportService interface {
	// PDF renders the full paginated document.
	// Returns ErrParcelNotFound or ErrNothingToExport.
	PDF(ctx context.Context, id int64) (*Document, error)

	// Preview renders the first page as a PNG image.
	// Returns ErrParcelNotFound or ErrNothingToExport.
	Preview(ctx context.Context, id int64) (*Document, error)
}

type exportService struct {
	parcels    ParcelService
	renderer   *export.Renderer
	cache      DocumentCache
	metrics    *metrics.Provider
	log        *logger.Logger
	previewDPI float64
}

// NewExportService creates an ExportService. cache and m may be nil.
func NewExportService(parcels ParcelService, cache DocumentCache, m *metrics.Provider, log *logger.Logger, previewDPI float64) ExportService {
	return &exportService{
		parcels:    parcels,
		renderer:   export.NewRenderer(export.DefaultLayout),
		cache:      cache,
		metrics:    m,
		log:        log,
		previewDPI: previewDPI,
	}
}

// PDF renders the parcel as a PDF document.
func (s *exportService) PDF(ctx context.Context, id int64) (*Document, error) {
	return s.document(ctx, id, FormatPDF, func(view export.Parcel) ([]byte, error) {
		data, _, err := RenderPDF(s.renderer, view)
		return data, err
	})
}

// Preview renders the first page of the parcel document as PNG.
func (s *exportService) Preview(ctx context.Context, id int64) (*Document, error) {
	return s.document(ctx, id, FormatPNG, func(view export.Parcel) ([]byte, error) {
		return RenderPreview(s.renderer, view, s.previewDPI)
	})
}

func (s *exportService) document(ctx context.Context, id int64, format string, render func(export.Parcel) ([]byte, error)) (*Document, error) {
	parcel, err := s.parcels.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := ExportView(parcel)
	doc := &Document{Filename: filenameFor(view.Name, format), ContentType: contentType(format)}

	key, err := contentKey(format, view)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		data, ok := s.cache.Get(ctx, key)
		s.metrics.CacheLookup(ok)
		if ok {
			doc.Data = data
			doc.Cached = true
			return doc, nil
		}
	}

	start := time.Now()
	data, err := render(view)
	if err != nil {
		if errors.Is(err, export.ErrNoGeometry) {
			s.log.Warn("Parcel has no geometry to export", map[string]interface{}{
				"parcel_id": id,
				"format":    format,
			})
			return nil, ErrNothingToExport
		}
		s.log.Error("Failed to render export", err, map[string]interface{}{
			"parcel_id": id,
			"format":    format,
		})
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}
	elapsed := time.Since(start)
	s.metrics.ExportRendered(format, elapsed)
	s.log.Info("Export rendered", map[string]interface{}{
		"parcel_id":   id,
		"format":      format,
		"bytes":       len(data),
		"duration_ms": elapsed.Milliseconds(),
	})

	if s.cache != nil {
		s.cache.Put(ctx, key, data)
	}
	doc.Data = data
	return doc, nil
}

// ExportView converts a stored parcel into the renderer's input. Varieties
// keep their stored order, which selects their symbols.
func ExportView(p *models.Parcel) export.Parcel {
	view := export.Parcel{
		Name:         p.Name,
		AreaHectares: p.Area,
		Boundary:     p.Boundary.Geometry,
		Varieties:    make([]export.Variety, len(p.Varieties)),
	}
	for i, v := range p.Varieties {
		view.Varieties[i] = export.Variety{Cultivar: v.Cultivar, Geometry: v.Geometry.Geometry}
	}
	return view
}

// RenderPDF renders view into an in-memory PDF. Nothing is returned unless
// the whole document rendered.
func RenderPDF(r *export.Renderer, view export.Parcel) ([]byte, export.Result, error) {
	w := export.NewPDFWriter()
	res, err := r.Render(view, w)
	if err != nil {
		return nil, export.Result{}, err
	}
	var buf bytes.Buffer
	if err := w.Output(&buf); err != nil {
		return nil, export.Result{}, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), res, nil
}

// RenderPreview renders the first page of view as a PNG image at dpi.
func RenderPreview(r *export.Renderer, view export.Parcel, dpi float64) ([]byte, error) {
	w, err := export.NewRasterWriter(dpi)
	if err != nil {
		return nil, err
	}
	if _, err := r.Render(view, w); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := w.EncodePNG(0, &buf); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// contentKey hashes everything the document depends on.
func contentKey(format string, view export.Parcel) (string, error) {
	type keyVariety struct {
		Cultivar string          `json:"c"`
		Geometry json.RawMessage `json:"g"`
	}
	body := struct {
		Name      string          `json:"n"`
		Area      float64         `json:"a"`
		Boundary  json.RawMessage `json:"b"`
		Varieties []keyVariety    `json:"v"`
	}{Name: view.Name, Area: view.AreaHectares}

	var err error
	if body.Boundary, err = models.NewGeoJSON(view.Boundary).MarshalJSON(); err != nil {
		return "", fmt.Errorf("failed to hash parcel: %w", err)
	}
	for _, v := range view.Varieties {
		g, err := models.NewGeoJSON(v.Geometry).MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("failed to hash parcel: %w", err)
		}
		body.Varieties = append(body.Varieties, keyVariety{Cultivar: v.Cultivar, Geometry: g})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to hash parcel: %w", err)
	}
	return cache.Key(format, data), nil
}

func filenameFor(name, format string) string {
	pdf := export.Filename(name)
	if format == FormatPDF {
		return pdf
	}
	return strings.TrimSuffix(pdf, ".pdf") + "." + format
}

func contentType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "application/pdf"
}
