package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

// MemoryStore is a process-local Store used by STORE_DRIVER=memory and tests
type MemoryStore struct {
	mu       sync.RWMutex
	payments []models.TransportPayment // insertion order
	fees     map[string]models.TransportFee
	students map[string]models.Student
	routes   map[string]models.Route
	attend   map[string]models.TransportAttendance

	// serializes WithinSnapshot callers
	snapMu sync.Mutex

	NowFunc func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fees:     make(map[string]models.TransportFee),
		students: make(map[string]models.Student),
		routes:   make(map[string]models.Route),
		attend:   make(map[string]models.TransportAttendance),
		NowFunc:  time.Now,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Close(context.Context) error { return nil }

// AddStudent seeds the directory
func (s *MemoryStore) AddStudent(st models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// AddRoute seeds the directory
func (s *MemoryStore) AddRoute(r models.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[r.ID] = r
}

func (s *MemoryStore) WithinSnapshot(_ context.Context, fn func(LedgerStore) error) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return fn(s)
}

func (s *MemoryStore) CreatePayment(_ context.Context, p *models.TransportPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.NowFunc()
	}
	p.UpdatedAt = p.CreatedAt
	s.payments = append(s.payments, *p)
	return nil
}

func (s *MemoryStore) FindPayments(_ context.Context, filter models.PaymentFilter) ([]models.TransportPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TransportPayment, 0)
	for i := len(s.payments) - 1; i >= 0; i-- {
		if filter.Matches(s.payments[i]) {
			out = append(out, s.payments[i])
		}
	}
	// reverse insertion order breaks createdAt ties newest first
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SumPayments(_ context.Context, key models.PaymentKey) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range s.payments {
		if p.Key() == key {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (s *MemoryStore) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.payments {
		if p.ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *MemoryStore) UpdatePaymentSnapshot(_ context.Context, id string, balance decimal.Decimal, status models.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments[i].Balance = balance
			s.payments[i].Status = status
			s.payments[i].UpdatedAt = s.NowFunc()
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *MemoryStore) UpsertFee(_ context.Context, routeID string, amount decimal.Decimal) (*models.TransportFee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.NowFunc()
	fee, ok := s.fees[routeID]
	if !ok {
		fee = models.TransportFee{ID: uuid.NewString(), CreatedAt: now, RouteID: routeID}
	}
	fee.Amount = amount
	fee.UpdatedAt = now
	s.fees[routeID] = fee
	return &fee, nil
}

func (s *MemoryStore) FindFee(_ context.Context, routeID string) (*models.TransportFee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fee, ok := s.fees[routeID]
	if !ok {
		return nil, nil
	}
	return &fee, nil
}

func (s *MemoryStore) ListFees(_ context.Context) ([]models.TransportFee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fees := make([]models.TransportFee, 0, len(s.fees))
	for _, f := range s.fees {
		fees = append(fees, f)
	}
	sort.Slice(fees, func(i, j int) bool {
		if fees[i].CreatedAt.Equal(fees[j].CreatedAt) {
			return fees[i].RouteID < fees[j].RouteID
		}
		return fees[i].CreatedAt.Before(fees[j].CreatedAt)
	})
	return fees, nil
}

func (s *MemoryStore) DeleteFee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for routeID, f := range s.fees {
		if f.ID == id {
			delete(s.fees, routeID)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *MemoryStore) GetStudent(_ context.Context, id string) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &st, nil
}

func (s *MemoryStore) GetRoute(_ context.Context, id string) (*models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListStudents(_ context.Context) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	students := make([]models.Student, 0, len(s.students))
	for _, st := range s.students {
		students = append(students, st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (s *MemoryStore) ListRoutes(_ context.Context) ([]models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	routes := make([]models.Route, 0, len(s.routes))
	for _, r := range s.routes {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Name < routes[j].Name })
	return routes, nil
}

func attendanceKey(studentID, routeID, date string) string {
	return studentID + "|" + routeID + "|" + date
}

func (s *MemoryStore) UpsertAttendance(_ context.Context, a *models.TransportAttendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.NowFunc()
	key := attendanceKey(a.StudentID, a.RouteID, a.Date)
	if existing, ok := s.attend[key]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.attend[key] = *a
	return nil
}

func (s *MemoryStore) FindAttendance(_ context.Context, date, routeID string) ([]models.TransportAttendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TransportAttendance, 0)
	for _, a := range s.attend {
		if (date == "" || a.Date == date) && (routeID == "" || a.RouteID == routeID) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}
