// Package docgen holds the document generation core: the override merge
// engine, per-document validation, and the shared rendering types.
package docgen

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/dealerdesk/dealerdesk/internal/sales"
)

// Placeholder is rendered in place of a missing mandatory value.
const Placeholder = "________________"

// FieldHook decorates a rendered field value, for callers that want to
// wrap values in extra markup. A nil hook renders the value as-is.
type FieldHook func(key sales.FieldKey, formatted string) template.HTML

// RenderOptions configures a single document rendering.
type RenderOptions struct {
	DocType    sales.DocumentType
	ShowStamp  bool
	WithDogane bool // invoice only: customs wording toggle

	// Display-only numeric overrides. They never touch the record.
	PriceOverride *float64
	TaxOverride   *float64

	FieldHook FieldHook
}

// Artifact is the immutable result of a successful export.
type Artifact struct {
	Bytes       []byte
	Filename    string
	ContentType string
	Pages       int
}

// ValidationError reports the mandatory fields missing from a projection.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// AssetError indicates an embedded image failed to load or decode in time.
type AssetError struct {
	URL string
	Err error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.URL, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// ErrRenderEnvironment indicates the raster engine rejected or degraded the
// hand-off; the caller may retry or fall back.
var ErrRenderEnvironment = errors.New("render environment unavailable")

// Filename derives the download name for a document per house convention.
func Filename(p Projection) string {
	vin := strings.TrimSpace(deref(p.VIN))
	if vin == "" {
		vin = "unknown"
	}
	switch p.DocType {
	case sales.DocDeposit:
		return fmt.Sprintf("Contract_%s_%s.pdf", safeName(p.Brand), safeName(p.Model))
	case sales.DocInvoice:
		return fmt.Sprintf("Invoice_%s.pdf", safeName(vin))
	default:
		return fmt.Sprintf("%s_%s.pdf", string(p.DocType), safeName(vin))
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
