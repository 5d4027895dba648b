package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

// YearGroup is the outermost level of a grouped payment summary
type YearGroup struct {
	Year  int         `json:"year"`
	Terms []TermGroup `json:"terms"`
}

type TermGroup struct {
	Term     models.Term    `json:"term"`
	Students []StudentGroup `json:"students"`
}

// StudentGroup holds one student's payments within a term, the balance of every
// route they paid toward and the sum of those route balances.
type StudentGroup struct {
	StudentID    string          `json:"studentId"`
	StudentName  string          `json:"studentName,omitempty"`
	Rows         []SummaryRow    `json:"rows"`
	Routes       []RouteBalance  `json:"routes"`
	TotalBalance decimal.Decimal `json:"totalBalance"`
}

// SummaryRow is a payment redisplayed with the live balance of its route
type SummaryRow struct {
	Payment   models.TransportPayment `json:"payment"`
	RouteName string                  `json:"routeName,omitempty"`
	RouteFee  decimal.Decimal         `json:"routeFee"`
	RoutePaid decimal.Decimal         `json:"routePaid"`
	Balance   decimal.Decimal         `json:"balance"`
	Status    models.PaymentStatus    `json:"status"`
}

type RouteBalance struct {
	RouteID   string `json:"routeId"`
	RouteName string `json:"routeName,omitempty"`
	Balance
}

// SummarizeByGroup nests payments as Year (descending) → Term → Student.
// Terms and students keep the order they are first seen in payments, and rows
// keep input order, so callers passing a newest-first listing get newest-first rows.
// Balances are recomputed from the fee schedule; stored snapshots are ignored.
func SummarizeByGroup(payments []models.TransportPayment, fees models.FeeSchedule) []YearGroup {
	type termBucket struct {
		term     models.Term
		students []string
		rows     map[string][]models.TransportPayment
	}
	type yearBucket struct {
		terms []*termBucket
		index map[models.Term]*termBucket
	}

	years := make(map[int]*yearBucket)
	var yearOrder []int
	for _, p := range payments {
		yb, ok := years[p.Year]
		if !ok {
			yb = &yearBucket{index: make(map[models.Term]*termBucket)}
			years[p.Year] = yb
			yearOrder = append(yearOrder, p.Year)
		}
		tb, ok := yb.index[p.Term]
		if !ok {
			tb = &termBucket{term: p.Term, rows: make(map[string][]models.TransportPayment)}
			yb.index[p.Term] = tb
			yb.terms = append(yb.terms, tb)
		}
		if _, ok := tb.rows[p.StudentID]; !ok {
			tb.students = append(tb.students, p.StudentID)
		}
		tb.rows[p.StudentID] = append(tb.rows[p.StudentID], p)
	}
	sort.SliceStable(yearOrder, func(i, j int) bool { return yearOrder[i] > yearOrder[j] })

	out := make([]YearGroup, 0, len(yearOrder))
	for _, year := range yearOrder {
		yb := years[year]
		yg := YearGroup{Year: year, Terms: make([]TermGroup, 0, len(yb.terms))}
		for _, tb := range yb.terms {
			tg := TermGroup{Term: tb.term, Students: make([]StudentGroup, 0, len(tb.students))}
			for _, studentID := range tb.students {
				tg.Students = append(tg.Students, summarizeStudent(studentID, tb.rows[studentID], fees))
			}
			yg.Terms = append(yg.Terms, tg)
		}
		out = append(out, yg)
	}
	return out
}

func summarizeStudent(studentID string, payments []models.TransportPayment, fees models.FeeSchedule) StudentGroup {
	totals := make(map[string]decimal.Decimal)
	var routeOrder []string
	for _, p := range payments {
		if _, ok := totals[p.RouteID]; !ok {
			routeOrder = append(routeOrder, p.RouteID)
			totals[p.RouteID] = decimal.Zero
		}
		totals[p.RouteID] = totals[p.RouteID].Add(p.Amount)
	}

	sg := StudentGroup{
		StudentID:    studentID,
		Rows:         make([]SummaryRow, 0, len(payments)),
		Routes:       make([]RouteBalance, 0, len(routeOrder)),
		TotalBalance: decimal.Zero,
	}
	balances := make(map[string]Balance, len(routeOrder))
	for _, routeID := range routeOrder {
		b := ComputeBalance(fees.FeeFor(routeID), totals[routeID])
		balances[routeID] = b
		sg.Routes = append(sg.Routes, RouteBalance{RouteID: routeID, Balance: b})
		sg.TotalBalance = sg.TotalBalance.Add(b.Balance)
	}
	for _, p := range payments {
		b := balances[p.RouteID]
		sg.Rows = append(sg.Rows, SummaryRow{
			Payment:   p,
			RouteFee:  b.Fee,
			RoutePaid: b.TotalPaid,
			Balance:   b.Balance,
			Status:    b.Status,
		})
	}
	return sg
}

// Groups flattens a summary into per (student, route, term, year) balances
func Groups(summary []YearGroup) []GroupBalance {
	var out []GroupBalance
	for _, yg := range summary {
		for _, tg := range yg.Terms {
			for _, sg := range tg.Students {
				for _, rb := range sg.Routes {
					out = append(out, GroupBalance{
						Key: models.PaymentKey{
							StudentID: sg.StudentID,
							RouteID:   rb.RouteID,
							Term:      tg.Term,
							Year:      yg.Year,
						},
						Balance: rb.Balance,
					})
				}
			}
		}
	}
	return out
}

// GroupBalance is the BalanceSummary of one payment group
type GroupBalance struct {
	Key models.PaymentKey
	Balance
}
