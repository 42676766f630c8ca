package sales

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// SALE RECORD
// ============================================================================

// Status enumerates the lifecycle states of a sale record.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusShipped    Status = "SHIPPED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusInspection Status = "INSPECTION"
	StatusAutosallon Status = "AUTOSALLON"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusShipped, StatusCompleted,
		StatusCancelled, StatusInspection, StatusAutosallon:
		return true
	}
	return false
}

// PaymentMethod enumerates how the buyer settles the sale.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentBank  PaymentMethod = "BANK"
	PaymentMixed PaymentMethod = "MIXED"
)

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentBank, PaymentMixed:
		return true
	}
	return false
}

// SaleRecord is the canonical business object for one vehicle transaction.
//
// Date fields other than CreatedAt/UpdatedAt are kept as ISO strings exactly
// as supplied by the upstream persistence layer; rendering parses them and
// falls back to a placeholder when they do not parse.
type SaleRecord struct {
	ID    uuid.UUID `json:"id" db:"id"`
	VIN   *string   `json:"vin,omitempty" db:"vin"`
	Plate *string   `json:"plate,omitempty" db:"plate"`

	Brand string  `json:"brand" db:"brand"`
	Model string  `json:"model" db:"model"`
	Year  *int    `json:"year,omitempty" db:"year"`
	Km    *int    `json:"km,omitempty" db:"km"`
	Color *string `json:"color,omitempty" db:"color"`

	SellerName      string  `json:"seller_name" db:"seller_name"`
	BuyerName       *string `json:"buyer_name,omitempty" db:"buyer_name"`
	BuyerPersonalID *string `json:"buyer_personal_id,omitempty" db:"buyer_personal_id"`

	CostToBuy    float64 `json:"cost_to_buy" db:"cost_to_buy"`
	SoldPrice    float64 `json:"sold_price" db:"sold_price"`
	CashPaid     float64 `json:"cash_paid" db:"cash_paid"`
	BankPaid     float64 `json:"bank_paid" db:"bank_paid"`
	Deposit      float64 `json:"deposit" db:"deposit"`
	ServicesCost float64 `json:"services_cost" db:"services_cost"`
	Tax          float64 `json:"tax" db:"tax"`
	SupplierPaid float64 `json:"supplier_paid" db:"supplier_paid"`

	ShippingDate        *string `json:"shipping_date,omitempty" db:"shipping_date"`
	DepositDate         *string `json:"deposit_date,omitempty" db:"deposit_date"`
	SupplierPaymentDate *string `json:"supplier_payment_date,omitempty" db:"supplier_payment_date"`
	ClientPaymentDate   *string `json:"client_payment_date,omitempty" db:"client_payment_date"`

	Status        Status        `json:"status" db:"status"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	Notes         *string       `json:"notes,omitempty" db:"notes"`

	// Overrides holds per-document-type display overrides. They are written
	// exclusively through ApplyOverrides and never mutate the base fields.
	Overrides map[DocumentType]Overrides `json:"overrides,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Balance derives the outstanding amount. It is never stored.
func (s SaleRecord) Balance() float64 {
	return s.SoldPrice - (s.CashPaid + s.BankPaid + s.Deposit)
}

// ============================================================================
// DOCUMENT TYPES & OVERRIDES
// ============================================================================

// DocumentType enumerates the printable documents derived from a sale.
type DocumentType string

const (
	DocDeposit           DocumentType = "deposit"
	DocInternalAgreement DocumentType = "internal-agreement"
	DocSalePurchase      DocumentType = "sale-purchase"
	DocInvoice           DocumentType = "invoice"
)

// AllDocumentTypes lists every supported document type.
var AllDocumentTypes = []DocumentType{DocDeposit, DocInternalAgreement, DocSalePurchase, DocInvoice}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocDeposit, DocInternalAgreement, DocSalePurchase, DocInvoice:
		return true
	}
	return false
}

// FieldKey is the closed set of fields a document override may touch.
type FieldKey string

const (
	FieldBrand     FieldKey = "brand"
	FieldModel     FieldKey = "model"
	FieldYear      FieldKey = "year"
	FieldKm        FieldKey = "km"
	FieldColor     FieldKey = "color"
	FieldPlate     FieldKey = "plate"
	FieldVIN       FieldKey = "vin"
	FieldSoldPrice FieldKey = "sold_price"
	FieldBuyerName FieldKey = "buyer_name"
	FieldBuyerID   FieldKey = "buyer_personal_id"
)

// AllFieldKeys lists the overridable fields in display order.
var AllFieldKeys = []FieldKey{
	FieldBrand, FieldModel, FieldYear, FieldKm, FieldColor,
	FieldPlate, FieldVIN, FieldSoldPrice, FieldBuyerName, FieldBuyerID,
}

// Valid reports whether k belongs to the closed field set.
func (k FieldKey) Valid() bool {
	for _, known := range AllFieldKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Label returns the human readable name used in validation messages.
func (k FieldKey) Label() string {
	switch k {
	case FieldBrand:
		return "Brand"
	case FieldModel:
		return "Model"
	case FieldYear:
		return "Year"
	case FieldKm:
		return "Km"
	case FieldColor:
		return "Color"
	case FieldPlate:
		return "Plate"
	case FieldVIN:
		return "VIN"
	case FieldSoldPrice:
		return "Sold Price"
	case FieldBuyerName:
		return "Buyer Name"
	case FieldBuyerID:
		return "Buyer Personal ID"
	}
	return string(k)
}

// Overrides is a document-type-specific override sub-record. A nil field
// means "no override", never "clear to empty".
type Overrides struct {
	Brand           *string  `json:"brand,omitempty"`
	Model           *string  `json:"model,omitempty"`
	Year            *int     `json:"year,omitempty"`
	Km              *int     `json:"km,omitempty"`
	Color           *string  `json:"color,omitempty"`
	Plate           *string  `json:"plate,omitempty"`
	VIN             *string  `json:"vin,omitempty"`
	SoldPrice       *float64 `json:"sold_price,omitempty"`
	BuyerName       *string  `json:"buyer_name,omitempty"`
	BuyerPersonalID *string  `json:"buyer_personal_id,omitempty"`
}

// IsEmpty reports whether no field carries an override.
func (o Overrides) IsEmpty() bool {
	return o.Brand == nil && o.Model == nil && o.Year == nil && o.Km == nil &&
		o.Color == nil && o.Plate == nil && o.VIN == nil && o.SoldPrice == nil &&
		o.BuyerName == nil && o.BuyerPersonalID == nil
}

// ============================================================================
// ATTACHMENTS
// ============================================================================

// AttachmentPurpose groups uploaded blobs by their business role.
type AttachmentPurpose string

const (
	PurposeBankReceipt    AttachmentPurpose = "BANK_RECEIPT"
	PurposeBankInvoice    AttachmentPurpose = "BANK_INVOICE"
	PurposeDepositInvoice AttachmentPurpose = "DEPOSIT_INVOICE"
)

// Valid reports whether p is a known attachment purpose.
func (p AttachmentPurpose) Valid() bool {
	switch p {
	case PurposeBankReceipt, PurposeBankInvoice, PurposeDepositInvoice:
		return true
	}
	return false
}

// Attachment is a named binary blob linked to a sale.
type Attachment struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	SaleID    uuid.UUID         `json:"sale_id" db:"sale_id"`
	Purpose   AttachmentPurpose `json:"purpose" db:"purpose"`
	Name      string            `json:"name" db:"name"`
	MimeType  string            `json:"mime_type" db:"mime_type"`
	SizeBytes int64             `json:"size_bytes" db:"size_bytes"`
	Data      []byte            `json:"-" db:"data"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// ============================================================================
// REQUEST DTOs
// ============================================================================

type CreateSaleRequest struct {
	VIN             *string       `json:"vin,omitempty" validate:"omitempty,max=17"`
	Plate           *string       `json:"plate,omitempty" validate:"omitempty,max=20"`
	Brand           string        `json:"brand" validate:"required,max=100"`
	Model           string        `json:"model" validate:"required,max=100"`
	Year            *int          `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Km              *int          `json:"km,omitempty" validate:"omitempty,gte=0"`
	Color           *string       `json:"color,omitempty" validate:"omitempty,max=50"`
	SellerName      string        `json:"seller_name" validate:"required,max=200"`
	BuyerName       *string       `json:"buyer_name,omitempty" validate:"omitempty,max=200"`
	BuyerPersonalID *string       `json:"buyer_personal_id,omitempty" validate:"omitempty,max=50"`
	CostToBuy       float64       `json:"cost_to_buy" validate:"gte=0"`
	SoldPrice       float64       `json:"sold_price" validate:"gte=0"`
	CashPaid        float64       `json:"cash_paid" validate:"gte=0"`
	BankPaid        float64       `json:"bank_paid" validate:"gte=0"`
	Deposit         float64       `json:"deposit" validate:"gte=0"`
	ServicesCost    float64       `json:"services_cost" validate:"gte=0"`
	Tax             float64       `json:"tax" validate:"gte=0"`
	SupplierPaid    float64       `json:"supplier_paid" validate:"gte=0"`
	ShippingDate    *string       `json:"shipping_date,omitempty"`
	DepositDate     *string       `json:"deposit_date,omitempty"`
	Status          Status        `json:"status" validate:"required"`
	PaymentMethod   PaymentMethod `json:"payment_method" validate:"required"`
	Notes           *string       `json:"notes,omitempty"`
}

type UpdateSaleRequest struct {
	VIN                 *string        `json:"vin,omitempty" validate:"omitempty,max=17"`
	Plate               *string        `json:"plate,omitempty" validate:"omitempty,max=20"`
	Brand               *string        `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model               *string        `json:"model,omitempty" validate:"omitempty,max=100"`
	Year                *int           `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Km                  *int           `json:"km,omitempty" validate:"omitempty,gte=0"`
	Color               *string        `json:"color,omitempty" validate:"omitempty,max=50"`
	SellerName          *string        `json:"seller_name,omitempty" validate:"omitempty,max=200"`
	BuyerName           *string        `json:"buyer_name,omitempty" validate:"omitempty,max=200"`
	BuyerPersonalID     *string        `json:"buyer_personal_id,omitempty" validate:"omitempty,max=50"`
	CostToBuy           *float64       `json:"cost_to_buy,omitempty" validate:"omitempty,gte=0"`
	SoldPrice           *float64       `json:"sold_price,omitempty" validate:"omitempty,gte=0"`
	CashPaid            *float64       `json:"cash_paid,omitempty" validate:"omitempty,gte=0"`
	BankPaid            *float64       `json:"bank_paid,omitempty" validate:"omitempty,gte=0"`
	Deposit             *float64       `json:"deposit,omitempty" validate:"omitempty,gte=0"`
	ServicesCost        *float64       `json:"services_cost,omitempty" validate:"omitempty,gte=0"`
	Tax                 *float64       `json:"tax,omitempty" validate:"omitempty,gte=0"`
	SupplierPaid        *float64       `json:"supplier_paid,omitempty" validate:"omitempty,gte=0"`
	ShippingDate        *string        `json:"shipping_date,omitempty"`
	DepositDate         *string        `json:"deposit_date,omitempty"`
	SupplierPaymentDate *string        `json:"supplier_payment_date,omitempty"`
	ClientPaymentDate   *string        `json:"client_payment_date,omitempty"`
	Status              *Status        `json:"status,omitempty"`
	PaymentMethod       *PaymentMethod `json:"payment_method,omitempty"`
	Notes               *string        `json:"notes,omitempty"`
}

type ListSalesRequest struct {
	Status *Status `json:"status,omitempty"`
	Search string  `json:"search,omitempty"`
	Page   int     `json:"page" validate:"gte=0"`
	Limit  int     `json:"limit" validate:"gte=0,lte=200"`
}

// FinancialSummary aggregates the monetary totals shown on the dashboard.
type FinancialSummary struct {
	Count              int     `json:"count"`
	Revenue            float64 `json:"revenue"`
	Cost               float64 `json:"cost"`
	ServicesCost       float64 `json:"services_cost"`
	Tax                float64 `json:"tax"`
	Profit             float64 `json:"profit"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}
