package services

import (
	"context"

	"github.com/shopspring/decimal"

	"school_transport_echo/internal/ledger"
	"school_transport_echo/internal/models"
)

// TransportStats aggregates the ledger for a year and/or term
type TransportStats struct {
	Year           int                        `json:"year,omitempty"`
	Term           models.Term                `json:"term,omitempty"`
	PaymentCount   int                        `json:"paymentCount"`
	TotalCollected decimal.Decimal            `json:"totalCollected"`
	ByMethod       map[string]decimal.Decimal `json:"byMethod"`
	Students       int                        `json:"students"`
	Outstanding    decimal.Decimal            `json:"outstanding"`
	PaidGroups     int                        `json:"paidGroups"`
	PartialGroups  int                        `json:"partialGroups"`
}

type StatsService struct {
	payments *PaymentService
}

func NewStatsService(payments *PaymentService) *StatsService {
	return &StatsService{payments: payments}
}

func (s *StatsService) Transport(ctx context.Context, year int, term models.Term) (*TransportStats, error) {
	filter := models.PaymentFilter{Year: year, Term: term}
	payments, err := s.payments.ListPayments(ctx, filter, false)
	if err != nil {
		return nil, err
	}
	fees, err := s.payments.FeeSchedule(ctx)
	if err != nil {
		return nil, err
	}

	stats := &TransportStats{
		Year:           year,
		Term:           term,
		PaymentCount:   len(payments),
		TotalCollected: ledger.SumAmounts(payments),
		ByMethod:       make(map[string]decimal.Decimal),
		Outstanding:    decimal.Zero,
	}
	for _, m := range models.PaymentMethods {
		stats.ByMethod[string(m)] = decimal.Zero
	}
	students := make(map[string]struct{})
	for _, p := range payments {
		stats.ByMethod[string(p.Method)] = stats.ByMethod[string(p.Method)].Add(p.Amount)
		students[p.StudentID] = struct{}{}
	}
	stats.Students = len(students)

	for _, g := range ledger.Groups(ledger.SummarizeByGroup(payments, fees)) {
		stats.Outstanding = stats.Outstanding.Add(g.Balance.Balance)
		switch g.Status {
		case models.PaymentStatusPaid:
			stats.PaidGroups++
		case models.PaymentStatusPartial:
			stats.PartialGroups++
		}
	}
	return stats, nil
}
