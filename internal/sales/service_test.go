package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory repository standing in for PostgreSQL.
type fakeRepo struct {
	records     map[uuid.UUID]*SaleRecord
	attachments map[uuid.UUID]*Attachment
	updates     []map[string]any
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:     make(map[uuid.UUID]*SaleRecord),
		attachments: make(map[uuid.UUID]*Attachment),
	}
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (*SaleRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) Insert(_ context.Context, s SaleRecord) (uuid.UUID, error) {
	r.records[s.ID] = &s
	return s.ID, nil
}

func (r *fakeRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	r.updates = append(r.updates, updates)
	if v, ok := updates["buyer_name"].(string); ok {
		r.records[id].BuyerName = &v
	}
	if v, ok := updates["sold_price"].(float64); ok {
		r.records[id].SoldPrice = v
	}
	return nil
}

func (r *fakeRepo) SetOverrides(_ context.Context, id uuid.UUID, docType DocumentType, o Overrides) error {
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Overrides == nil {
		rec.Overrides = make(map[DocumentType]Overrides)
	}
	rec.Overrides[docType] = o
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context, req ListSalesRequest) ([]SaleRecord, int, error) {
	var out []SaleRecord
	for _, rec := range r.records {
		if req.Status != nil && rec.Status != *req.Status {
			continue
		}
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Summary(_ context.Context, status *Status) (FinancialSummary, error) {
	var sum FinancialSummary
	for _, rec := range r.records {
		if status != nil && rec.Status != *status {
			continue
		}
		sum.Count++
		sum.Revenue += rec.SoldPrice
		sum.Cost += rec.CostToBuy
		sum.Tax += rec.Tax
		sum.Profit += rec.SoldPrice - rec.CostToBuy - rec.ServicesCost - rec.Tax
		sum.OutstandingBalance += rec.Balance()
	}
	return sum, nil
}

func (r *fakeRepo) InsertAttachment(_ context.Context, a Attachment) (uuid.UUID, error) {
	r.attachments[a.ID] = &a
	return a.ID, nil
}

func (r *fakeRepo) ListAttachments(_ context.Context, saleID uuid.UUID) ([]Attachment, error) {
	var out []Attachment
	for _, a := range r.attachments {
		if a.SaleID == saleID {
			meta := *a
			meta.Data = nil
			out = append(out, meta)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetAttachment(_ context.Context, id uuid.UUID) (*Attachment, error) {
	a, ok := r.attachments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func ptrTo[T any](v T) *T { return &v }

func validCreateRequest() CreateSaleRequest {
	return CreateSaleRequest{
		Brand:         "BMW",
		Model:         "320d",
		VIN:           ptrTo("WBA3D31050K000001"),
		SellerName:    "DealerDesk SHPK",
		BuyerName:     ptrTo("John Doe"),
		CostToBuy:     9000,
		SoldPrice:     12500,
		Status:        StatusInProgress,
		PaymentMethod: PaymentCash,
	}
}

func TestCreateStoresRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)

	stored, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "BMW", stored.Brand)
	assert.Equal(t, 12500.0, stored.SoldPrice)
}

func TestCreateRejectsMissingBrand(t *testing.T) {
	svc := newService(newFakeRepo())
	req := validCreateRequest()
	req.Brand = ""

	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := newService(newFakeRepo())
	req := validCreateRequest()
	req.Status = Status("PAUSED")

	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRejectsOverlongVIN(t *testing.T) {
	svc := newService(newFakeRepo())
	req := validCreateRequest()
	req.VIN = ptrTo("THIS-VIN-IS-WAY-TOO-LONG-TO-BE-REAL")

	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), rec.ID, UpdateSaleRequest{
		BuyerName: ptrTo("Jane Roe"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", *updated.BuyerName)
	assert.Equal(t, "BMW", updated.Brand)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, map[string]any{"buyer_name": "Jane Roe"}, repo.updates[0])
}

func TestUpdateWithNoFieldsSkipsWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), rec.ID, UpdateSaleRequest{})
	require.NoError(t, err)
	assert.Empty(t, repo.updates)
}

func TestUpdateUnknownRecord(t *testing.T) {
	svc := newService(newFakeRepo())
	_, err := svc.Update(context.Background(), uuid.New(), UpdateSaleRequest{BuyerName: ptrTo("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesRecord(t *testing.T) {
	svc := newService(newFakeRepo())
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), rec.ID))
	_, err = svc.Get(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	svc := newService(newFakeRepo())
	bad := Status("NOPE")
	_, _, err := svc.List(context.Background(), ListSalesRequest{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSummaryAggregatesTotals(t *testing.T) {
	svc := newService(newFakeRepo())

	first := validCreateRequest()
	first.SoldPrice = 10000
	first.CostToBuy = 7000
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	second := validCreateRequest()
	second.SoldPrice = 20000
	second.CostToBuy = 15000
	second.Status = StatusCompleted
	_, err = svc.Create(context.Background(), second)
	require.NoError(t, err)

	all, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, 30000.0, all.Revenue)

	completed := StatusCompleted
	filtered, err := svc.Summary(context.Background(), &completed)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Count)
	assert.Equal(t, 20000.0, filtered.Revenue)
}

func TestApplyOverridesMergesChangedKeys(t *testing.T) {
	svc := newService(newFakeRepo())
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.ApplyOverrides(context.Background(), rec.ID, DocInvoice, map[FieldKey]string{
		FieldBuyerName: "Jane Roe",
	})
	require.NoError(t, err)
	require.Contains(t, updated.Overrides, DocInvoice)
	assert.Equal(t, "Jane Roe", *updated.Overrides[DocInvoice].BuyerName)

	// A second write touching a different key keeps the first override.
	updated, err = svc.ApplyOverrides(context.Background(), rec.ID, DocInvoice, map[FieldKey]string{
		FieldSoldPrice: "11000",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", *updated.Overrides[DocInvoice].BuyerName)
	assert.Equal(t, 11000.0, *updated.Overrides[DocInvoice].SoldPrice)

	// The base record never changes.
	assert.Equal(t, "John Doe", *updated.BuyerName)
	assert.Equal(t, 12500.0, updated.SoldPrice)
}

func TestApplyOverridesIsolatedPerDocumentType(t *testing.T) {
	svc := newService(newFakeRepo())
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.ApplyOverrides(context.Background(), rec.ID, DocDeposit, map[FieldKey]string{
		FieldBuyerName: "Jane Roe",
	})
	require.NoError(t, err)
	assert.NotContains(t, updated.Overrides, DocInvoice)
}

func TestApplyOverridesRejectsBadInput(t *testing.T) {
	svc := newService(newFakeRepo())
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.ApplyOverrides(context.Background(), rec.ID, DocumentType("receipt"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ApplyOverrides(context.Background(), rec.ID, DocInvoice, map[FieldKey]string{
		FieldKey("owner"): "x",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ApplyOverrides(context.Background(), rec.ID, DocInvoice, map[FieldKey]string{
		FieldSoldPrice: "a lot",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOverridesFromValuesParsesNumerics(t *testing.T) {
	o, err := OverridesFromValues(map[FieldKey]string{
		FieldYear:      "2020",
		FieldKm:        " 50000 ",
		FieldSoldPrice: "12000.50",
	})
	require.NoError(t, err)
	assert.Equal(t, 2020, *o.Year)
	assert.Equal(t, 50000, *o.Km)
	assert.Equal(t, 12000.5, *o.SoldPrice)

	_, err = OverridesFromValues(map[FieldKey]string{FieldSoldPrice: "-5"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAttachmentsRoundTrip(t *testing.T) {
	svc := newService(newFakeRepo())
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	a, err := svc.AddAttachment(context.Background(), rec.ID, PurposeBankReceipt, "receipt.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), a.SizeBytes)

	metas, err := svc.ListAttachments(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "receipt.pdf", metas[0].Name)
	assert.Nil(t, metas[0].Data)

	full, err := svc.GetAttachment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), full.Data)
}

func TestAddAttachmentValidation(t *testing.T) {
	svc := newService(newFakeRepo())
	rec, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.AddAttachment(context.Background(), rec.ID, AttachmentPurpose("SELFIE"), "a.png", "image/png", []byte{1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddAttachment(context.Background(), rec.ID, PurposeBankReceipt, "", "image/png", []byte{1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddAttachment(context.Background(), uuid.New(), PurposeBankReceipt, "a.png", "image/png", []byte{1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBalanceDerivation(t *testing.T) {
	rec := SaleRecord{SoldPrice: 20000, CashPaid: 5000, BankPaid: 4000, Deposit: 1000}
	assert.Equal(t, 10000.0, rec.Balance())
}
