package sales

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repository abstracts persistence so the service can be unit tested.
type repository interface {
	Get(ctx context.Context, id uuid.UUID) (*SaleRecord, error)
	Insert(ctx context.Context, s SaleRecord) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetOverrides(ctx context.Context, id uuid.UUID, docType DocumentType, o Overrides) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, req ListSalesRequest) ([]SaleRecord, int, error)
	Summary(ctx context.Context, status *Status) (FinancialSummary, error)
	InsertAttachment(ctx context.Context, a Attachment) (uuid.UUID, error)
	ListAttachments(ctx context.Context, saleID uuid.UUID) ([]Attachment, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error)
}

// Service provides business logic for sale records.
type Service struct {
	repo     repository
	validate *validator.Validate
}

// NewService constructs a sales service backed by PostgreSQL.
func NewService(pool *pgxpool.Pool) *Service {
	return newService(NewRepository(pool))
}

func newService(repo repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create stores a new sale record.
func (s *Service) Create(ctx context.Context, req CreateSaleRequest) (*SaleRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.PaymentMethod)
	}

	record := SaleRecord{
		ID:              uuid.New(),
		VIN:             req.VIN,
		Plate:           req.Plate,
		Brand:           req.Brand,
		Model:           req.Model,
		Year:            req.Year,
		Km:              req.Km,
		Color:           req.Color,
		SellerName:      req.SellerName,
		BuyerName:       req.BuyerName,
		BuyerPersonalID: req.BuyerPersonalID,
		CostToBuy:       req.CostToBuy,
		SoldPrice:       req.SoldPrice,
		CashPaid:        req.CashPaid,
		BankPaid:        req.BankPaid,
		Deposit:         req.Deposit,
		ServicesCost:    req.ServicesCost,
		Tax:             req.Tax,
		SupplierPaid:    req.SupplierPaid,
		ShippingDate:    req.ShippingDate,
		DepositDate:     req.DepositDate,
		Status:          req.Status,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}

	id, err := s.repo.Insert(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	record.ID = id
	return &record, nil
}

// Get retrieves a sale record by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*SaleRecord, error) {
	return s.repo.Get(ctx, id)
}

// List returns a paginated list of sale records.
func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]SaleRecord, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
	}
	return s.repo.List(ctx, req)
}

// Update applies a partial update to an existing sale record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateSaleRequest) (*SaleRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
	}
	if req.PaymentMethod != nil && !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, *req.PaymentMethod)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	updates := buildUpdates(req)
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update sale: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a sale record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Summary aggregates financial totals, optionally filtered by status.
func (s *Service) Summary(ctx context.Context, status *Status) (FinancialSummary, error) {
	if status != nil && !status.Valid() {
		return FinancialSummary{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
	}
	return s.repo.Summary(ctx, status)
}

// ApplyOverrides merges the changed keys into the sale's override sub-record
// for one document type. It is the only write path for overrides; keys not
// present in changed are left untouched.
func (s *Service) ApplyOverrides(ctx context.Context, id uuid.UUID, docType DocumentType, changed map[FieldKey]string) (*SaleRecord, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	for key := range changed {
		if !key.Valid() {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, key)
		}
	}
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	current := Overrides{}
	if record.Overrides != nil {
		current = record.Overrides[docType]
	}
	merged, err := mergeOverrideValues(current, changed)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetOverrides(ctx, id, docType, merged); err != nil {
		return nil, fmt.Errorf("set overrides: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// AddAttachment stores a named blob against a sale.
func (s *Service) AddAttachment(ctx context.Context, saleID uuid.UUID, purpose AttachmentPurpose, name, mimeType string, data []byte) (*Attachment, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("%w: unknown attachment purpose %q", ErrInvalidInput, purpose)
	}
	if name == "" || len(data) == 0 {
		return nil, fmt.Errorf("%w: attachment name and data are required", ErrInvalidInput)
	}
	if _, err := s.repo.Get(ctx, saleID); err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	a := Attachment{
		ID:        uuid.New(),
		SaleID:    saleID,
		Purpose:   purpose,
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Data:      data,
	}
	id, err := s.repo.InsertAttachment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	a.ID = id
	return &a, nil
}

// ListAttachments returns attachment metadata for a sale.
func (s *Service) ListAttachments(ctx context.Context, saleID uuid.UUID) ([]Attachment, error) {
	return s.repo.ListAttachments(ctx, saleID)
}

// GetAttachment loads one attachment including its data.
func (s *Service) GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	return s.repo.GetAttachment(ctx, id)
}
