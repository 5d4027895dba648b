package services

import (
	"context"

	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

// LedgerStore persists payments and the fee schedule.
// Lookups of a missing record return models.ErrNotFound.
type LedgerStore interface {
	// WithinSnapshot runs fn against a store view whose reads observe one
	// consistent snapshot, where the backend supports it.
	WithinSnapshot(ctx context.Context, fn func(LedgerStore) error) error

	CreatePayment(ctx context.Context, p *models.TransportPayment) error
	// FindPayments returns matching payments, newest first
	FindPayments(ctx context.Context, filter models.PaymentFilter) ([]models.TransportPayment, error)
	SumPayments(ctx context.Context, key models.PaymentKey) (decimal.Decimal, error)
	DeletePayment(ctx context.Context, id string) error
	UpdatePaymentSnapshot(ctx context.Context, id string, balance decimal.Decimal, status models.PaymentStatus) error

	UpsertFee(ctx context.Context, routeID string, amount decimal.Decimal) (*models.TransportFee, error)
	// FindFee returns nil, nil when the route has no fee entry
	FindFee(ctx context.Context, routeID string) (*models.TransportFee, error)
	ListFees(ctx context.Context) ([]models.TransportFee, error)
	DeleteFee(ctx context.Context, id string) error
}

// Directory is the read-only view of students and routes owned by the wider school system
type Directory interface {
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetRoute(ctx context.Context, id string) (*models.Route, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListRoutes(ctx context.Context) ([]models.Route, error)
}

type AttendanceStore interface {
	// UpsertAttendance creates or replaces the record keyed by (student, route, date)
	UpsertAttendance(ctx context.Context, a *models.TransportAttendance) error
	FindAttendance(ctx context.Context, date, routeID string) ([]models.TransportAttendance, error)
}

// Store is everything a backend driver provides
type Store interface {
	LedgerStore
	Directory
	AttendanceStore
	Name() string
	Close(ctx context.Context) error
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
