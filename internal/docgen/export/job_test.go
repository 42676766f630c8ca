package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerdesk/dealerdesk/internal/sales"
)

func paidSale(stamp string) sales.SaleRecord {
	return sales.SaleRecord{ClientPaymentDate: &stamp}
}

func TestPaidWithinInclusiveRange(t *testing.T) {
	assert.True(t, paidWithin(paidSale("2026-08-28"), "2026-08-28", "2026-08-28"))
	assert.True(t, paidWithin(paidSale("2026-08-28"), "2026-08-01", "2026-08-31"))
	assert.True(t, paidWithin(paidSale("2026-08-01"), "2026-08-01", "2026-08-31"), "range start is inclusive")
	assert.True(t, paidWithin(paidSale("2026-08-31"), "2026-08-01", "2026-08-31"), "range end is inclusive")
	assert.False(t, paidWithin(paidSale("2026-09-01"), "2026-08-01", "2026-08-31"))
	assert.False(t, paidWithin(paidSale("2026-07-31"), "2026-08-01", "2026-08-31"))
}

func TestPaidWithinKeepsCivilDateOfOffsetStamps(t *testing.T) {
	// Late evening in a UTC-3 zone is already past midnight in UTC; the
	// sale still belongs to the 28th.
	assert.True(t, paidWithin(paidSale("2026-08-28T23:30:00-03:00"), "2026-08-28", "2026-08-28"))
	assert.False(t, paidWithin(paidSale("2026-08-28T23:30:00-03:00"), "2026-08-29", "2026-08-29"))

	// Just after midnight in a UTC+3 zone is still the 28th in UTC; the
	// sale belongs to the 29th.
	assert.True(t, paidWithin(paidSale("2026-08-29T00:30:00+03:00"), "2026-08-29", "2026-08-29"))
	assert.False(t, paidWithin(paidSale("2026-08-29T00:30:00+03:00"), "2026-08-28", "2026-08-28"))
}

func TestPaidWithinSkipsMissingOrGarbageStamps(t *testing.T) {
	assert.False(t, paidWithin(sales.SaleRecord{}, "2026-08-01", "2026-08-31"))
	assert.False(t, paidWithin(paidSale("sometime in august"), "2026-08-01", "2026-08-31"))
}
