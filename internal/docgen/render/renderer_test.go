package render

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/internal/stamp"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(stamp.NewProcessor("", nil), nil)
	require.NoError(t, err)
	return r
}

func strRef(s string) *string { return &s }

func testProjection(docType sales.DocumentType) docgen.Projection {
	year := 2021
	km := 45000
	rec := sales.SaleRecord{
		Brand:      "Audi",
		Model:      "A4",
		Year:       &year,
		Km:         &km,
		VIN:        strRef("WAUZZZ8K9BA123456"),
		BuyerName:  strRef("John Doe"),
		SellerName: "DealerDesk SHPK",
		SoldPrice:  15500,
		Deposit:    2000,
		CashPaid:   3000,
		Tax:        500,
	}
	return docgen.Merge(rec, docType)
}

func TestRenderAllDocumentTypes(t *testing.T) {
	r := newTestRenderer(t)
	for _, docType := range sales.AllDocumentTypes {
		doc, err := r.Render(context.Background(), testProjection(docType), docgen.RenderOptions{DocType: docType})
		require.NoError(t, err, string(docType))

		assert.Equal(t, docType, doc.DocType)
		assert.Contains(t, doc.HTML, "Audi")
		assert.Contains(t, doc.HTML, "WAUZZZ8K9BA123456")
		assert.NotEmpty(t, doc.Filename)
	}
}

func TestRenderPageCounts(t *testing.T) {
	r := newTestRenderer(t)

	doc, err := r.Render(context.Background(), testProjection(sales.DocInternalAgreement),
		docgen.RenderOptions{DocType: sales.DocInternalAgreement})
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, 3, strings.Count(doc.HTML, `class="page"`))

	doc, err = r.Render(context.Background(), testProjection(sales.DocDeposit),
		docgen.RenderOptions{DocType: sales.DocDeposit})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages)
}

func TestRenderMissingValuesShowPlaceholders(t *testing.T) {
	r := newTestRenderer(t)
	p := testProjection(sales.DocSalePurchase)
	p.BuyerName = nil
	p.VIN = nil

	doc, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, docgen.Placeholder)
}

func TestRenderInvoiceDoganeToggle(t *testing.T) {
	r := newTestRenderer(t)
	p := testProjection(sales.DocInvoice)

	without, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocInvoice})
	require.NoError(t, err)
	assert.Contains(t, without.HTML, "Customs duties")
	assert.NotContains(t, without.HTML, "(customs included)")

	with, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocInvoice, WithDogane: true})
	require.NoError(t, err)
	assert.Contains(t, with.HTML, "(customs included)")
	assert.NotContains(t, with.HTML, "Customs duties")
}

func TestRenderInvoiceUsesCentPrecision(t *testing.T) {
	r := newTestRenderer(t)
	p := testProjection(sales.DocInvoice)
	p.SoldPrice = 15500.5

	doc, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocInvoice})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "€15,500.50")

	contract, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.NoError(t, err)
	assert.Contains(t, contract.HTML, "€15,501")
}

func TestRenderDisplayOverridesDoNotTouchRecord(t *testing.T) {
	r := newTestRenderer(t)
	p := testProjection(sales.DocInvoice)
	price := 9999.0

	doc, err := r.Render(context.Background(), p, docgen.RenderOptions{
		DocType:       sales.DocInvoice,
		PriceOverride: &price,
	})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "€9,999.00")
	assert.Equal(t, 15500.0, p.SoldPrice)
}

func TestRenderFieldHookWrapsEditableValues(t *testing.T) {
	r := newTestRenderer(t)
	hook := func(key sales.FieldKey, formatted string) template.HTML {
		return template.HTML(fmt.Sprintf(`<span class="edit" data-key="%s">%s</span>`, key, template.HTMLEscapeString(formatted)))
	}

	doc, err := r.Render(context.Background(), testProjection(sales.DocDeposit), docgen.RenderOptions{
		DocType:   sales.DocDeposit,
		FieldHook: hook,
	})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, `data-key="buyer_name">John Doe</span>`)
	assert.Contains(t, doc.HTML, `data-key="vin">WAUZZZ8K9BA123456</span>`)
}

func TestRenderIsRepeatable(t *testing.T) {
	r := newTestRenderer(t)
	opts := docgen.RenderOptions{DocType: sales.DocSalePurchase}

	first, err := r.Render(context.Background(), testProjection(sales.DocSalePurchase), opts)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), testProjection(sales.DocSalePurchase), opts)
	require.NoError(t, err)

	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, StateReady, r.State())
}

func TestRenderRejectsUnknownDocumentType(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.Render(context.Background(), testProjection(sales.DocInvoice),
		docgen.RenderOptions{DocType: sales.DocumentType("receipt")})
	assert.Error(t, err)
}

func TestRenderStampToggle(t *testing.T) {
	r := newTestRenderer(t)
	p := testProjection(sales.DocSalePurchase)

	plain, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocSalePurchase})
	require.NoError(t, err)
	stamped, err := r.Render(context.Background(), p, docgen.RenderOptions{DocType: sales.DocSalePurchase, ShowStamp: true})
	require.NoError(t, err)

	// The stamp source is unconfigured here, so the toggle only switches the
	// stamp block on; the image itself stays absent.
	assert.NotContains(t, plain.HTML, `<div class="stamp-block">`)
	assert.Contains(t, stamped.HTML, `<div class="stamp-block">`)
}
