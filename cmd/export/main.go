// Command export renders a parcel JSON document (the body accepted by
// POST /api/v1/parcels) to a print-ready PDF map.
//
//	export --in parcel.json --out maps/ [--preview] [--dpi 150]
//
// The document is rendered completely in memory; the output file is only
// written once rendering succeeded.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/stwalsh4118/orchard/internal/export"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/models"
	"github.com/stwalsh4118/orchard/internal/services"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

func main() {
	in := flag.StringP("in", "i", "", "parcel JSON file")
	out := flag.StringP("out", "o", ".", "output directory")
	preview := flag.BoolP("preview", "p", false, "also write a PNG preview of the first page")
	dpi := flag.Float64("dpi", 96, "preview resolution")
	env := flag.String("env", "development", "log format: development or production")
	flag.Parse()

	log := logger.NewWithWriter(*env, os.Stderr)
	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	written, err := exportFile(*in, *out, *preview, *dpi, log)
	if err != nil {
		log.Fatal("Export failed", err, map[string]interface{}{"in": *in})
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

// exportFile renders the parcel in inPath into outDir and returns the paths
// written.
func exportFile(inPath, outDir string, preview bool, dpi float64, log *logger.Logger) ([]string, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parcel: %w", err)
	}
	parcel, err := models.DecodeParcel(data)
	if err != nil {
		return nil, err
	}
	if parcel.Degraded() {
		log.Warn("Unsupported geometry dropped from input", map[string]interface{}{
			"in":       inPath,
			"boundary": parcel.Boundary.Degraded(),
		})
	}
	parcel.Area = spatial.AreaHectares(parcel.Ring())

	renderer := export.NewRenderer(export.DefaultLayout)
	view := services.ExportView(parcel)
	pdf, res, err := services.RenderPDF(renderer, view)
	if err != nil {
		return nil, err
	}
	var png []byte
	if preview {
		if png, err = services.RenderPreview(renderer, view, dpi); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	pdfPath := filepath.Join(outDir, res.Filename)
	if err := writeAtomic(pdfPath, pdf); err != nil {
		return nil, err
	}
	written := []string{pdfPath}
	log.Info("Map exported", map[string]interface{}{
		"parcel":       parcel.Name,
		"path":         pdfPath,
		"pages":        res.Pages,
		"legend_pages": res.LegendPages,
		"scale_bar":    res.ScaleBar.Label,
	})

	if png != nil {
		pngPath := strings.TrimSuffix(pdfPath, ".pdf") + ".png"
		if err := writeAtomic(pngPath, png); err != nil {
			return written, err
		}
		written = append(written, pngPath)
	}
	return written, nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
