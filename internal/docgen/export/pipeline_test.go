package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/docgen/render"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/report"
)

type stubRenderer struct {
	doc render.Document
	err error
}

func (s *stubRenderer) Render(_ context.Context, _ docgen.Projection, _ docgen.RenderOptions) (render.Document, error) {
	return s.doc, s.err
}

type stubConverter struct {
	gotHTML string
	pdf     []byte
	err     error
}

func (s *stubConverter) RenderHTML(_ context.Context, html string, _ report.RenderOptions) ([]byte, error) {
	s.gotHTML = html
	return s.pdf, s.err
}

func testSale() sales.SaleRecord {
	vin := "WVWZZZ1JZXW000001"
	buyer := "John Doe"
	return sales.SaleRecord{
		Brand:     "Volkswagen",
		Model:     "Golf",
		VIN:       &vin,
		BuyerName: &buyer,
		SoldPrice: 12500,
	}
}

func testExporter(r documentRenderer, c pdfConverter) *Exporter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newExporter(r, c, nil, logger, 3, time.Second)
}

func TestExportHappyPath(t *testing.T) {
	renderer := &stubRenderer{doc: render.Document{
		HTML:     `<div id="print-root" style="padding:4px"><div class="page" style="color: oklch(0.2 0 0); box-shadow: 0 1px 2px rgb(0,0,0);">x</div></div>`,
		Pages:    1,
		Filename: "Contract_Volkswagen_Golf.pdf",
		DocType:  sales.DocSalePurchase,
	}}
	converter := &stubConverter{pdf: []byte(minimalPDF)}
	exp := testExporter(renderer, converter)

	artifact, err := exp.Export(context.Background(), testSale(), docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.NoError(t, err)

	assert.Equal(t, "Contract_Volkswagen_Golf.pdf", artifact.Filename)
	assert.Equal(t, "application/pdf", artifact.ContentType)
	assert.Equal(t, 1, artifact.Pages)
	assert.Equal(t, minimalPDF, string(artifact.Bytes))

	// Normalization ran before conversion.
	assert.NotContains(t, converter.gotHTML, "oklch")
	assert.NotContains(t, converter.gotHTML, "box-shadow")
	assert.Contains(t, converter.gotHTML, "margin:0")
}

func TestExportBlocksOnMissingBuyerName(t *testing.T) {
	sale := testSale()
	sale.BuyerName = nil
	exp := testExporter(&stubRenderer{}, &stubConverter{})

	_, err := exp.Export(context.Background(), sale, docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.Error(t, err)

	var verr *docgen.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Missing, "Buyer Name")
}

func TestExportInvoiceGainsFormFields(t *testing.T) {
	renderer := &stubRenderer{doc: render.Document{
		HTML:     `<div class="page">invoice</div>`,
		Pages:    1,
		Filename: "Invoice_WVWZZZ1JZXW000001.pdf",
		DocType:  sales.DocInvoice,
	}}
	converter := &stubConverter{pdf: []byte(minimalPDF)}
	exp := testExporter(renderer, converter)

	artifact, err := exp.Export(context.Background(), testSale(), docgen.RenderOptions{DocType: sales.DocInvoice})
	require.NoError(t, err)

	body := string(artifact.Bytes)
	assert.True(t, strings.HasPrefix(body, minimalPDF))
	assert.Contains(t, body, "/T (vin)")
	assert.Contains(t, body, "/T (buyer_name)")
	assert.Contains(t, body, "/DA (/Helv 0 Tf 3 Tr)")
}

func TestExportInvoiceInjectionFailurePassesThrough(t *testing.T) {
	// A PDF without a classic xref table ships unmodified.
	opaque := "%PDF-1.7\nbinary body without trailer\nstartxref\n9\n%%EOF\n"
	renderer := &stubRenderer{doc: render.Document{HTML: "<div/>", Pages: 1, Filename: "Invoice_X.pdf", DocType: sales.DocInvoice}}
	converter := &stubConverter{pdf: []byte(opaque)}
	exp := testExporter(renderer, converter)

	artifact, err := exp.Export(context.Background(), testSale(), docgen.RenderOptions{DocType: sales.DocInvoice})
	require.NoError(t, err)
	assert.Equal(t, opaque, string(artifact.Bytes))
}

func TestExportWrapsConverterFailure(t *testing.T) {
	renderer := &stubRenderer{doc: render.Document{HTML: "<div/>", Pages: 1}}
	converter := &stubConverter{err: errors.New("connection refused")}
	exp := testExporter(renderer, converter)

	_, err := exp.Export(context.Background(), testSale(), docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.ErrorIs(t, err, docgen.ErrRenderEnvironment)
}

func TestExportFailsOnBrokenImage(t *testing.T) {
	renderer := &stubRenderer{doc: render.Document{
		HTML:  `<img src="data:image/png;base64,%%%">`,
		Pages: 1,
	}}
	exp := testExporter(renderer, &stubConverter{pdf: []byte(minimalPDF)})

	_, err := exp.Export(context.Background(), testSale(), docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.Error(t, err)

	var assetErr *docgen.AssetError
	require.ErrorAs(t, err, &assetErr)
}
