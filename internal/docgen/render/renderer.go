// Package render lays out the four printable documents as HTML pages ready
// for rasterization.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/internal/stamp"
	"github.com/dealerdesk/dealerdesk/web"
)

// State tracks the renderer's lifecycle for one render pass.
type State string

const (
	StateValidating State = "validating"
	StateRendering  State = "rendering"
	StateReady      State = "ready"
)

// Document is a fully laid out printable page tree.
type Document struct {
	HTML     string
	Pages    int
	Filename string
	DocType  sales.DocumentType
}

// pageCounts fixes the page tree size per document type. The internal
// agreement is always three pages regardless of data.
var pageCounts = map[sales.DocumentType]int{
	sales.DocDeposit:           1,
	sales.DocInternalAgreement: 3,
	sales.DocSalePurchase:      1,
	sales.DocInvoice:           1,
}

var templateNames = map[sales.DocumentType]string{
	sales.DocDeposit:           "deposit.html",
	sales.DocInternalAgreement: "internal_agreement.html",
	sales.DocSalePurchase:      "sale_purchase.html",
	sales.DocInvoice:           "invoice.html",
}

// Renderer maps a projection plus options onto a printable HTML document.
// A render pass is atomic: callers never observe a partially updated page
// tree, and re-rendering with new options is idempotent.
type Renderer struct {
	tpl   *template.Template
	stamp *stamp.Processor
	logo  *Logo

	mu    sync.Mutex
	state State
}

// NewRenderer parses the document templates and wires the static assets.
func NewRenderer(stampProc *stamp.Processor, logo *Logo) (*Renderer, error) {
	funcMap := template.FuncMap{
		"money":  docgen.FormatMoney,
		"amount": docgen.FormatAmount,
		"date":   docgen.FormatDate,
		"upper":  strings.ToUpper,
	}
	tpl, err := template.New("documents").Funcs(funcMap).ParseFS(web.Templates, "templates/documents/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{tpl: tpl, stamp: stampProc, logo: logo, state: StateReady}, nil
}

// State reports the current lifecycle state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// documentData is the template view model. Overridable fields are pre-run
// through the field hook so templates stay hook-agnostic.
type documentData struct {
	Brand     template.HTML
	Model     template.HTML
	Year      template.HTML
	Km        template.HTML
	Color     template.HTML
	Plate     template.HTML
	VIN       template.HTML
	BuyerName template.HTML
	BuyerID   template.HTML
	SoldPrice template.HTML

	SellerName   string
	DepositPaid  string
	CashPaid     string
	BankPaid     string
	Balance      string
	Tax          string
	InvoiceTotal string

	ShippingDate string
	DepositDate  string
	Today        string

	ShowStamp  bool
	StampURI   string
	LogoURI    string
	WithDogane bool
	Notes      string
	Pages      int
}

// Render builds the page tree for the projection. Missing mandatory values
// render as visible placeholders; validation only blocks export, not
// preview rendering.
func (r *Renderer) Render(ctx context.Context, p docgen.Projection, opts docgen.RenderOptions) (Document, error) {
	if r == nil || r.tpl == nil {
		return Document{}, fmt.Errorf("render: renderer not initialised")
	}
	name, ok := templateNames[opts.DocType]
	if !ok {
		return Document{}, fmt.Errorf("render: unknown document type %q", opts.DocType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateValidating
	data := r.buildData(ctx, p, opts)

	r.state = StateRendering
	buf := &bytes.Buffer{}
	if err := r.tpl.ExecuteTemplate(buf, name, data); err != nil {
		r.state = StateReady
		return Document{}, fmt.Errorf("render: execute %s: %w", name, err)
	}
	r.state = StateReady

	return Document{
		HTML:     buf.String(),
		Pages:    pageCounts[opts.DocType],
		Filename: docgen.Filename(p),
		DocType:  opts.DocType,
	}, nil
}

func (r *Renderer) buildData(ctx context.Context, p docgen.Projection, opts docgen.RenderOptions) documentData {
	fractions := 0
	if opts.DocType == sales.DocInvoice {
		fractions = 2
	}

	soldPrice := p.SoldPrice
	if opts.PriceOverride != nil {
		soldPrice = *opts.PriceOverride
	}
	tax := p.Tax
	if opts.TaxOverride != nil {
		tax = *opts.TaxOverride
	}

	hook := opts.FieldHook
	if hook == nil {
		hook = func(_ sales.FieldKey, formatted string) template.HTML {
			return template.HTML(template.HTMLEscapeString(formatted))
		}
	}
	field := func(key sales.FieldKey) template.HTML {
		v := strings.TrimSpace(p.FieldValue(key))
		if v == "" {
			v = docgen.Placeholder
		}
		return hook(key, v)
	}

	data := documentData{
		Brand:     field(sales.FieldBrand),
		Model:     field(sales.FieldModel),
		Year:      field(sales.FieldYear),
		Km:        field(sales.FieldKm),
		Color:     field(sales.FieldColor),
		Plate:     field(sales.FieldPlate),
		VIN:       field(sales.FieldVIN),
		BuyerName: field(sales.FieldBuyerName),
		BuyerID:   field(sales.FieldBuyerID),
		SoldPrice: hook(sales.FieldSoldPrice, docgen.FormatMoney(soldPrice, fractions)),

		SellerName:   p.SellerName,
		DepositPaid:  docgen.FormatMoney(p.Deposit, fractions),
		CashPaid:     docgen.FormatMoney(p.CashPaid, fractions),
		BankPaid:     docgen.FormatMoney(p.BankPaid, fractions),
		Balance:      docgen.FormatMoney(p.Balance(), fractions),
		Tax:          docgen.FormatMoney(tax, fractions),
		InvoiceTotal: docgen.FormatMoney(soldPrice, 2),

		ShippingDate: docgen.FormatDatePtr(p.ShippingDate),
		DepositDate:  docgen.FormatDatePtr(p.DepositDate),
		Today:        time.Now().Format("02.01.2006"),

		WithDogane: opts.WithDogane,
		Notes:      strings.TrimSpace(derefStr(p.Notes)),
		Pages:      pageCounts[opts.DocType],
	}

	if opts.ShowStamp && r.stamp != nil {
		data.ShowStamp = true
		data.StampURI = r.stamp.DataURI(ctx)
	}
	if r.logo != nil {
		data.LogoURI = r.logo.DataURI(ctx)
	}
	return data
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
