package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransportFee is the amount owed per term for riding a route. One entry per route.
type TransportFee struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	RouteID string          `gorm:"type:varchar(64);uniqueIndex" json:"routeId"`
	Amount  decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
}

// FeeSchedule maps a route ID to the fee owed for it
type FeeSchedule map[string]decimal.Decimal

// NewFeeSchedule indexes fee entries by route
func NewFeeSchedule(fees []TransportFee) FeeSchedule {
	schedule := make(FeeSchedule, len(fees))
	for _, f := range fees {
		schedule[f.RouteID] = f.Amount
	}
	return schedule
}

// FeeFor returns the fee for a route, zero when the route has no entry
func (s FeeSchedule) FeeFor(routeID string) decimal.Decimal {
	if fee, ok := s[routeID]; ok {
		return fee
	}
	return decimal.Zero
}
