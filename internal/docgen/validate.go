package docgen

import (
	"strings"

	"github.com/dealerdesk/dealerdesk/internal/sales"
)

// requirement is one mandatory-field check for a document type.
type requirement struct {
	label   string
	present func(Projection) bool
}

func nonEmpty(get func(Projection) string) func(Projection) bool {
	return func(p Projection) bool {
		return strings.TrimSpace(get(p)) != ""
	}
}

var baseContractRequirements = []requirement{
	{label: "Brand", present: nonEmpty(func(p Projection) string { return p.Brand })},
	{label: "Model", present: nonEmpty(func(p Projection) string { return p.Model })},
	{label: "VIN", present: nonEmpty(func(p Projection) string { return deref(p.VIN) })},
	{label: "Buyer Name", present: nonEmpty(func(p Projection) string { return deref(p.BuyerName) })},
	{label: "Sold Price", present: func(p Projection) bool { return p.SoldPrice > 0 }},
}

// requirements maps each document type to its mandatory fields. Missing any
// of them blocks export; the renderer shows placeholders instead.
var requirements = map[sales.DocumentType][]requirement{
	sales.DocDeposit: append(append([]requirement{}, baseContractRequirements...), requirement{
		label:   "Deposit",
		present: func(p Projection) bool { return p.Deposit > 0 },
	}),
	sales.DocSalePurchase:      baseContractRequirements,
	sales.DocInternalAgreement: baseContractRequirements[:4],
	sales.DocInvoice:           baseContractRequirements,
}

// Validate checks the mandatory fields for the projection's document type.
// It returns nil when the projection is exportable, or a *ValidationError
// listing the human readable labels of every missing field.
func Validate(p Projection) error {
	var missing []string
	for _, req := range requirements[p.DocType] {
		if !req.present(p) {
			missing = append(missing, req.label)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
