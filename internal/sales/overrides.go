package sales

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldValue returns the base record's value for an overridable field as a
// plain string. Absent optional fields yield "".
func (s SaleRecord) FieldValue(k FieldKey) string {
	switch k {
	case FieldBrand:
		return s.Brand
	case FieldModel:
		return s.Model
	case FieldYear:
		if s.Year == nil {
			return ""
		}
		return strconv.Itoa(*s.Year)
	case FieldKm:
		if s.Km == nil {
			return ""
		}
		return strconv.Itoa(*s.Km)
	case FieldColor:
		return deref(s.Color)
	case FieldPlate:
		return deref(s.Plate)
	case FieldVIN:
		return deref(s.VIN)
	case FieldSoldPrice:
		return strconv.FormatFloat(s.SoldPrice, 'f', -1, 64)
	case FieldBuyerName:
		return deref(s.BuyerName)
	case FieldBuyerID:
		return deref(s.BuyerPersonalID)
	}
	return ""
}

// Field returns the override value for a field, reporting whether one is set.
func (o Overrides) Field(k FieldKey) (string, bool) {
	switch k {
	case FieldBrand:
		return strVal(o.Brand)
	case FieldModel:
		return strVal(o.Model)
	case FieldYear:
		if o.Year == nil {
			return "", false
		}
		return strconv.Itoa(*o.Year), true
	case FieldKm:
		if o.Km == nil {
			return "", false
		}
		return strconv.Itoa(*o.Km), true
	case FieldColor:
		return strVal(o.Color)
	case FieldPlate:
		return strVal(o.Plate)
	case FieldVIN:
		return strVal(o.VIN)
	case FieldSoldPrice:
		if o.SoldPrice == nil {
			return "", false
		}
		return strconv.FormatFloat(*o.SoldPrice, 'f', -1, 64), true
	case FieldBuyerName:
		return strVal(o.BuyerName)
	case FieldBuyerID:
		return strVal(o.BuyerPersonalID)
	}
	return "", false
}

// OverridesFromValues parses a plain key-to-string mapping into a typed
// override sub-record. Numeric fields reject non-numeric input.
func OverridesFromValues(values map[FieldKey]string) (Overrides, error) {
	return mergeOverrideValues(Overrides{}, values)
}

// mergeOverrideValues parses the changed values and layers them onto the
// current override sub-record. Unlisted keys keep their current value.
func mergeOverrideValues(current Overrides, changed map[FieldKey]string) (Overrides, error) {
	out := current
	for key, raw := range changed {
		raw = strings.TrimSpace(raw)
		switch key {
		case FieldBrand:
			out.Brand = &raw
		case FieldModel:
			out.Model = &raw
		case FieldColor:
			out.Color = &raw
		case FieldPlate:
			out.Plate = &raw
		case FieldVIN:
			out.VIN = &raw
		case FieldBuyerName:
			out.BuyerName = &raw
		case FieldBuyerID:
			out.BuyerPersonalID = &raw
		case FieldYear:
			v, err := strconv.Atoi(raw)
			if err != nil {
				return Overrides{}, fmt.Errorf("%w: year %q is not a number", ErrInvalidInput, raw)
			}
			out.Year = &v
		case FieldKm:
			v, err := strconv.Atoi(raw)
			if err != nil {
				return Overrides{}, fmt.Errorf("%w: km %q is not a number", ErrInvalidInput, raw)
			}
			out.Km = &v
		case FieldSoldPrice:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 0 {
				return Overrides{}, fmt.Errorf("%w: sold price %q is not a non-negative number", ErrInvalidInput, raw)
			}
			out.SoldPrice = &v
		}
	}
	return out, nil
}

// buildUpdates converts a partial update request into a column update map.
func buildUpdates(req UpdateSaleRequest) map[string]any {
	updates := make(map[string]any)
	if req.VIN != nil {
		updates["vin"] = *req.VIN
	}
	if req.Plate != nil {
		updates["plate"] = *req.Plate
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.Year != nil {
		updates["year"] = *req.Year
	}
	if req.Km != nil {
		updates["km"] = *req.Km
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.SellerName != nil {
		updates["seller_name"] = *req.SellerName
	}
	if req.BuyerName != nil {
		updates["buyer_name"] = *req.BuyerName
	}
	if req.BuyerPersonalID != nil {
		updates["buyer_personal_id"] = *req.BuyerPersonalID
	}
	if req.CostToBuy != nil {
		updates["cost_to_buy"] = *req.CostToBuy
	}
	if req.SoldPrice != nil {
		updates["sold_price"] = *req.SoldPrice
	}
	if req.CashPaid != nil {
		updates["cash_paid"] = *req.CashPaid
	}
	if req.BankPaid != nil {
		updates["bank_paid"] = *req.BankPaid
	}
	if req.Deposit != nil {
		updates["deposit"] = *req.Deposit
	}
	if req.ServicesCost != nil {
		updates["services_cost"] = *req.ServicesCost
	}
	if req.Tax != nil {
		updates["tax"] = *req.Tax
	}
	if req.SupplierPaid != nil {
		updates["supplier_paid"] = *req.SupplierPaid
	}
	if req.ShippingDate != nil {
		updates["shipping_date"] = *req.ShippingDate
	}
	if req.DepositDate != nil {
		updates["deposit_date"] = *req.DepositDate
	}
	if req.SupplierPaymentDate != nil {
		updates["supplier_payment_date"] = *req.SupplierPaymentDate
	}
	if req.ClientPaymentDate != nil {
		updates["client_payment_date"] = *req.ClientPaymentDate
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.PaymentMethod != nil {
		updates["payment_method"] = *req.PaymentMethod
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	return updates
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strVal(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
