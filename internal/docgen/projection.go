package docgen

import (
	"github.com/dealerdesk/dealerdesk/internal/sales"
)

// Projection is the read-only merged view of a sale plus its document-type
// overrides. It is derived on every render and never persisted.
type Projection struct {
	sales.SaleRecord
	DocType sales.DocumentType
}

// Merge layers the document-type override sub-record onto the base sale.
// A nil override field means "no override"; the base value survives. The
// operation is pure and idempotent.
func Merge(sale sales.SaleRecord, docType sales.DocumentType) Projection {
	proj := Projection{SaleRecord: sale, DocType: docType}
	if sale.Overrides == nil {
		return proj
	}
	o, ok := sale.Overrides[docType]
	if !ok || o.IsEmpty() {
		return proj
	}

	if o.Brand != nil {
		proj.Brand = *o.Brand
	}
	if o.Model != nil {
		proj.Model = *o.Model
	}
	if o.Year != nil {
		y := *o.Year
		proj.Year = &y
	}
	if o.Km != nil {
		km := *o.Km
		proj.Km = &km
	}
	if o.Color != nil {
		c := *o.Color
		proj.Color = &c
	}
	if o.Plate != nil {
		p := *o.Plate
		proj.Plate = &p
	}
	if o.VIN != nil {
		v := *o.VIN
		proj.VIN = &v
	}
	if o.SoldPrice != nil {
		proj.SoldPrice = *o.SoldPrice
	}
	if o.BuyerName != nil {
		b := *o.BuyerName
		proj.BuyerName = &b
	}
	if o.BuyerPersonalID != nil {
		id := *o.BuyerPersonalID
		proj.BuyerPersonalID = &id
	}
	return proj
}
