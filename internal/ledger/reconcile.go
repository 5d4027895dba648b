package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

// SnapshotUpdate is a corrected balance/status for a stored payment
type SnapshotUpdate struct {
	PaymentID string
	Balance   decimal.Decimal
	Status    models.PaymentStatus
}

// ReplaySnapshots walks every payment group in creation order under the given
// fee schedule and returns the payments whose stored snapshot differs from the
// running balance at the time they were recorded.
func ReplaySnapshots(payments []models.TransportPayment, fees models.FeeSchedule) []SnapshotUpdate {
	ordered := make([]models.TransportPayment, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	running := make(map[models.PaymentKey]decimal.Decimal)
	var updates []SnapshotUpdate
	for _, p := range ordered {
		key := p.Key()
		total := running[key].Add(p.Amount)
		running[key] = total

		b := ComputeBalance(fees.FeeFor(p.RouteID), total)
		if !b.Balance.Equal(p.Balance) || b.Status != p.Status {
			updates = append(updates, SnapshotUpdate{PaymentID: p.ID, Balance: b.Balance, Status: b.Status})
		}
	}
	return updates
}
