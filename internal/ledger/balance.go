// Package ledger holds the transport fee arithmetic shared by the API, the
// grouped summaries and the reconcile task. Everything here is pure.
package ledger

import (
	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

// Balance is the derived state of a (student, route, term, year) group
type Balance struct {
	Fee       decimal.Decimal      `json:"fee"`
	TotalPaid decimal.Decimal      `json:"totalPaid"`
	Balance   decimal.Decimal      `json:"balance"`
	Status    models.PaymentStatus `json:"status"`
}

// ComputeBalance applies the fee rule: balance = max(fee - totalPaid, 0).
// Overpayment clamps to zero.
func ComputeBalance(fee, totalPaid decimal.Decimal) Balance {
	balance := fee.Sub(totalPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return Balance{
		Fee:       fee,
		TotalPaid: totalPaid,
		Balance:   balance,
		Status:    StatusFor(balance, totalPaid),
	}
}

// StatusFor derives the payment status. Paid wins over Unpaid, so a zero fee
// with nothing paid is reported as Paid.
func StatusFor(balance, totalPaid decimal.Decimal) models.PaymentStatus {
	switch {
	case !balance.IsPositive():
		return models.PaymentStatusPaid
	case totalPaid.IsPositive():
		return models.PaymentStatusPartial
	default:
		return models.PaymentStatusUnpaid
	}
}

// SumAmounts totals the amount of every payment
func SumAmounts(payments []models.TransportPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
