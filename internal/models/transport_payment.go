package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("record not found")

func init() {
	// amounts go over the wire as JSON numbers, like the rest of the school app
	decimal.MarshalJSONWithoutQuotes = true
}

// Term is one of the three school terms of an academic year
type Term string

const (
	Term1 Term = "Term 1"
	Term2 Term = "Term 2"
	Term3 Term = "Term 3"
)

// Terms lists the valid terms in calendar order
var Terms = []Term{Term1, Term2, Term3}

// Valid reports whether t is one of the enumerated terms
func (t Term) Valid() bool {
	for _, v := range Terms {
		if t == v {
			return true
		}
	}
	return false
}

// PaymentMethod is how a transport payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodMpesa        PaymentMethod = "Mpesa"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
)

// PaymentMethods lists the accepted payment methods
var PaymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodMpesa, PaymentMethodBankTransfer}

func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

// PaymentStatus summarizes payment progress against the route fee
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// TransportPayment is a single payment a student made toward a route for a term.
// Balance and Status are captured when the payment is recorded ("balance as of this payment").
type TransportPayment struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StudentID string          `gorm:"type:varchar(64);index:idx_transport_payments_group,priority:1" json:"studentId"`
	RouteID   string          `gorm:"type:varchar(64);index:idx_transport_payments_group,priority:2" json:"routeId"`
	Term      Term            `gorm:"type:varchar(20);index:idx_transport_payments_group,priority:3" json:"term"`
	Year      int             `gorm:"index:idx_transport_payments_group,priority:4" json:"year"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	Method    PaymentMethod   `gorm:"type:varchar(30)" json:"method"`
	Balance   decimal.Decimal `gorm:"type:decimal(14,2)" json:"balance"`
	Status    PaymentStatus   `gorm:"type:varchar(20)" json:"status"`
}

// Key returns the (student, route, term, year) group the payment belongs to
func (p TransportPayment) Key() PaymentKey {
	return PaymentKey{StudentID: p.StudentID, RouteID: p.RouteID, Term: p.Term, Year: p.Year}
}

// PaymentKey identifies the group of payments a balance is computed over
type PaymentKey struct {
	StudentID string
	RouteID   string
	Term      Term
	Year      int
}

// PaymentFilter narrows payment listings; zero fields are ignored
type PaymentFilter struct {
	Term      Term
	Year      int
	StudentID string
	RouteID   string
}

// Matches reports whether p satisfies every set field of the filter
func (f PaymentFilter) Matches(p TransportPayment) bool {
	return (f.Term == "" || p.Term == f.Term) &&
		(f.Year == 0 || p.Year == f.Year) &&
		(f.StudentID == "" || p.StudentID == f.StudentID) &&
		(f.RouteID == "" || p.RouteID == f.RouteID)
}
