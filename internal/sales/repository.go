package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// Repository provides PostgreSQL backed persistence for sale records.
//
// Expected schema: sale_records(id uuid pk, vin, plate, brand, model, year,
// km, color, seller_name, buyer_name, buyer_personal_id, monetary columns,
// date columns as text, status, payment_method, notes, overrides jsonb,
// created_at, updated_at), sale_attachments(id uuid pk, sale_id fk, purpose,
// name, mime_type, size_bytes, data bytea, created_at).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const saleColumns = `id, vin, plate, brand, model, year, km, color,
seller_name, buyer_name, buyer_personal_id,
cost_to_buy, sold_price, cash_paid, bank_paid, deposit, services_cost, tax, supplier_paid,
shipping_date, deposit_date, supplier_payment_date, client_payment_date,
status, payment_method, notes, overrides, created_at, updated_at`

func scanSale(row pgx.Row) (*SaleRecord, error) {
	var s SaleRecord
	var overrides []byte
	err := row.Scan(
		&s.ID, &s.VIN, &s.Plate, &s.Brand, &s.Model, &s.Year, &s.Km, &s.Color,
		&s.SellerName, &s.BuyerName, &s.BuyerPersonalID,
		&s.CostToBuy, &s.SoldPrice, &s.CashPaid, &s.BankPaid, &s.Deposit, &s.ServicesCost, &s.Tax, &s.SupplierPaid,
		&s.ShippingDate, &s.DepositDate, &s.SupplierPaymentDate, &s.ClientPaymentDate,
		&s.Status, &s.PaymentMethod, &s.Notes, &overrides, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &s.Overrides); err != nil {
			return nil, fmt.Errorf("sales: decode overrides: %w", err)
		}
	}
	return &s, nil
}

// Get loads a sale record by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*SaleRecord, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("sales: repository not initialised")
	}
	query := `SELECT ` + saleColumns + ` FROM sale_records WHERE id = $1`
	s, err := scanSale(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// Insert stores a new sale record and returns its id.
func (r *Repository) Insert(ctx context.Context, s SaleRecord) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, fmt.Errorf("sales: repository not initialised")
	}
	overrides, err := json.Marshal(s.Overrides)
	if err != nil {
		return uuid.Nil, err
	}
	const insert = `INSERT INTO sale_records (
id, vin, plate, brand, model, year, km, color,
seller_name, buyer_name, buyer_personal_id,
cost_to_buy, sold_price, cash_paid, bank_paid, deposit, services_cost, tax, supplier_paid,
shipping_date, deposit_date, supplier_payment_date, client_payment_date,
status, payment_method, notes, overrides)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
RETURNING id`
	var id uuid.UUID
	err = r.pool.QueryRow(ctx, insert,
		s.ID, s.VIN, s.Plate, s.Brand, s.Model, s.Year, s.Km, s.Color,
		s.SellerName, s.BuyerName, s.BuyerPersonalID,
		s.CostToBuy, s.SoldPrice, s.CashPaid, s.BankPaid, s.Deposit, s.ServicesCost, s.Tax, s.SupplierPaid,
		s.ShippingDate, s.DepositDate, s.SupplierPaymentDate, s.ClientPaymentDate,
		s.Status, s.PaymentMethod, s.Notes, overrides,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, fmt.Errorf("%w: vin already registered", ErrAlreadyExists)
		}
		return uuid.Nil, err
	}
	return id, nil
}

// Update applies a partial column update built by the service layer.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("sales: repository not initialised")
	}
	if len(updates) == 0 {
		return nil
	}
	cols := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	i := 1
	for col, val := range updates {
		cols = append(cols, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	cols = append(cols, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE sale_records SET %s WHERE id = $%d", strings.Join(cols, ", "), i)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOverrides replaces the override sub-record for one document type.
func (r *Repository) SetOverrides(ctx context.Context, id uuid.UUID, docType DocumentType, o Overrides) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("sales: repository not initialised")
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	const query = `UPDATE sale_records
SET overrides = jsonb_set(COALESCE(overrides, '{}'::jsonb), ARRAY[$2::text], $3::jsonb),
    updated_at = now()
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, string(docType), payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a sale record and its attachments.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("sales: repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM sale_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of sale records plus the total match count.
func (r *Repository) List(ctx context.Context, req ListSalesRequest) ([]SaleRecord, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, fmt.Errorf("sales: repository not initialised")
	}
	where := []string{"TRUE"}
	args := []any{}
	i := 1
	if req.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", i))
		args = append(args, *req.Status)
		i++
	}
	if req.Search != "" {
		where = append(where, fmt.Sprintf("(brand ILIKE $%d OR model ILIKE $%d OR vin ILIKE $%d OR buyer_name ILIKE $%d)", i, i, i, i))
		args = append(args, "%"+req.Search+"%")
		i++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sale_records WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := req.Page * limit
	query := fmt.Sprintf("SELECT %s FROM sale_records WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", saleColumns, cond, i, i+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var records []SaleRecord
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *s)
	}
	return records, total, rows.Err()
}

// Summary aggregates financial totals over the matching records.
func (r *Repository) Summary(ctx context.Context, status *Status) (FinancialSummary, error) {
	if r == nil || r.pool == nil {
		return FinancialSummary{}, fmt.Errorf("sales: repository not initialised")
	}
	query := `SELECT COUNT(*),
COALESCE(SUM(sold_price),0), COALESCE(SUM(cost_to_buy),0),
COALESCE(SUM(services_cost),0), COALESCE(SUM(tax),0),
COALESCE(SUM(sold_price - (cash_paid + bank_paid + deposit)),0)
FROM sale_records WHERE ($1::text IS NULL OR status = $1)`
	var arg any
	if status != nil {
		arg = string(*status)
	}
	var out FinancialSummary
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&out.Count, &out.Revenue, &out.Cost, &out.ServicesCost, &out.Tax, &out.OutstandingBalance,
	)
	if err != nil {
		return FinancialSummary{}, err
	}
	out.Profit = out.Revenue - out.Cost - out.ServicesCost - out.Tax
	return out, nil
}

// ============================================================================
// ATTACHMENTS
// ============================================================================

// InsertAttachment stores a named blob for a sale.
func (r *Repository) InsertAttachment(ctx context.Context, a Attachment) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, fmt.Errorf("sales: repository not initialised")
	}
	const insert = `INSERT INTO sale_attachments (id, sale_id, purpose, name, mime_type, size_bytes, data)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, insert, a.ID, a.SaleID, a.Purpose, a.Name, a.MimeType, a.SizeBytes, a.Data).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ListAttachments returns attachment metadata for a sale, without blob data.
func (r *Repository) ListAttachments(ctx context.Context, saleID uuid.UUID) ([]Attachment, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("sales: repository not initialised")
	}
	const query = `SELECT id, sale_id, purpose, name, mime_type, size_bytes, created_at
FROM sale_attachments WHERE sale_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.SaleID, &a.Purpose, &a.Name, &a.MimeType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAttachment loads one attachment including its data.
func (r *Repository) GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("sales: repository not initialised")
	}
	const query = `SELECT id, sale_id, purpose, name, mime_type, size_bytes, data, created_at
FROM sale_attachments WHERE id = $1`
	var a Attachment
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.SaleID, &a.Purpose, &a.Name, &a.MimeType, &a.SizeBytes, &a.Data, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
