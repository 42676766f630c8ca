package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/docgen/render"
	"github.com/dealerdesk/dealerdesk/internal/observability"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/report"
)

// documentRenderer produces the printable page tree for a projection.
type documentRenderer interface {
	Render(ctx context.Context, p docgen.Projection, opts docgen.RenderOptions) (render.Document, error)
}

// pdfConverter turns laid out HTML into PDF bytes.
type pdfConverter interface {
	RenderHTML(ctx context.Context, html string, opts report.RenderOptions) ([]byte, error)
}

// Exporter drives a document from sale record to final PDF artifact.
type Exporter struct {
	renderer  documentRenderer
	converter pdfConverter
	barrier   *ImageBarrier
	metrics   *observability.Metrics
	logger    *slog.Logger
	scale     float64
}

// NewExporter wires the export pipeline. Scale is the Chromium
// oversampling factor; values below 1 fall back to 3.
func NewExporter(renderer *render.Renderer, converter *report.Client, metrics *observability.Metrics, logger *slog.Logger, scale float64, imageTimeout time.Duration) *Exporter {
	return newExporter(renderer, converter, metrics, logger, scale, imageTimeout)
}

func newExporter(renderer documentRenderer, converter pdfConverter, metrics *observability.Metrics, logger *slog.Logger, scale float64, imageTimeout time.Duration) *Exporter {
	if scale < 1 {
		scale = 3
	}
	return &Exporter{
		renderer:  renderer,
		converter: converter,
		barrier:   NewImageBarrier(imageTimeout),
		metrics:   metrics,
		logger:    logger,
		scale:     scale,
	}
}

// Export runs the full pipeline: validate the merged projection, render
// the page tree, normalize it for print capture, wait for every embedded
// image, convert to PDF, and for invoices inject the mirror form fields.
func (e *Exporter) Export(ctx context.Context, sale sales.SaleRecord, opts docgen.RenderOptions) (docgen.Artifact, error) {
	started := time.Now()
	artifact, err := e.export(ctx, sale, opts)
	e.observe(opts.DocType, err, time.Since(started))
	return artifact, err
}

func (e *Exporter) export(ctx context.Context, sale sales.SaleRecord, opts docgen.RenderOptions) (docgen.Artifact, error) {
	p := docgen.Merge(sale, opts.DocType)
	if err := docgen.Validate(p); err != nil {
		return docgen.Artifact{}, err
	}

	doc, err := e.renderer.Render(ctx, p, opts)
	if err != nil {
		return docgen.Artifact{}, fmt.Errorf("render %s: %w", opts.DocType, err)
	}

	html := NormalizeLayout(SanitizeColors(doc.HTML))

	if err := e.barrier.Wait(ctx, html); err != nil {
		return docgen.Artifact{}, err
	}

	pdf, err := e.converter.RenderHTML(ctx, html, report.A4(e.scale))
	if err != nil {
		return docgen.Artifact{}, fmt.Errorf("%w: %v", docgen.ErrRenderEnvironment, err)
	}

	if opts.DocType == sales.DocInvoice {
		pdf = e.injectInvoiceFields(p, pdf)
	}

	return docgen.Artifact{
		Bytes:       pdf,
		Filename:    doc.Filename,
		ContentType: "application/pdf",
		Pages:       doc.Pages,
	}, nil
}

// injectInvoiceFields mirrors the invoice's key values as invisible form
// fields. Injection failures never block the export; the plain PDF ships
// as-is.
func (e *Exporter) injectInvoiceFields(p docgen.Projection, pdf []byte) []byte {
	injected, err := InjectFields(pdf, CollectInvoiceFields(p))
	if err != nil {
		if errors.Is(err, ErrUnsupportedPDF) {
			e.logger.Warn("acroform injection skipped", "reason", "unsupported pdf structure")
		} else {
			e.logger.Warn("acroform injection failed", "error", err)
		}
		return pdf
	}
	return injected
}

func (e *Exporter) observe(docType sales.DocumentType, err error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveExport(string(docType), exportOutcome(err), elapsed)
}

func exportOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isValidationError(err):
		return "blocked"
	case errors.Is(err, docgen.ErrRenderEnvironment):
		return "environment"
	default:
		var assetErr *docgen.AssetError
		if errors.As(err, &assetErr) {
			return "asset_error"
		}
		return "error"
	}
}

func isValidationError(err error) bool {
	var verr *docgen.ValidationError
	return errors.As(err, &verr)
}
