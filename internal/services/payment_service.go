package services

import (
	"context"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"school_transport_echo/internal/ledger"
	"school_transport_echo/internal/models"
)

// PaymentServiceConfig tunes caching and the fee policy
type PaymentServiceConfig struct {
	Cache    Cache // nil disables caching
	CacheTTL time.Duration
	// StrictFees rejects payments toward routes without a fee entry
	StrictFees bool
}

// PaymentService records transport payments and derives balances from them
type PaymentService struct {
	ledger     LedgerStore
	directory  Directory
	cache      *paymentCache
	strictFees bool
	log        *glog.Logger
	nowFunc    func() time.Time
}

func NewPaymentService(ledgerStore LedgerStore, directory Directory, log *glog.Logger, cfg PaymentServiceConfig) *PaymentService {
	s := &PaymentService{
		ledger:     ledgerStore,
		directory:  directory,
		strictFees: cfg.StrictFees,
		log:        log,
		nowFunc:    time.Now,
	}
	if cfg.Cache != nil {
		s.cache = &paymentCache{cache: cfg.Cache, ttl: cfg.CacheTTL}
	}
	return s
}

// lookupErr maps a store lookup failure to NotFoundError or StoreError
func lookupErr(resource, id string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return &StoreError{Op: "get " + resource, Err: err}
}

// asStoreErr leaves typed errors alone and wraps anything else as a StoreError
func asStoreErr(op string, err error) error {
	var (
		vErr  *ValidationError
		nfErr *NotFoundError
		sErr  *StoreError
	)
	if errors.As(err, &vErr) || errors.As(err, &nfErr) || errors.As(err, &sErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// RecordPayment validates the input, snapshots the balance of the payment's
// group as of this payment and persists it in a single write.
func (s *PaymentService) RecordPayment(ctx context.Context, in NewPayment) (*models.TransportPayment, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetStudent(ctx, in.StudentID); err != nil {
		return nil, lookupErr("student", in.StudentID, err)
	}
	if _, err := s.directory.GetRoute(ctx, in.RouteID); err != nil {
		return nil, lookupErr("route", in.RouteID, err)
	}

	payment := &models.TransportPayment{
		StudentID: in.StudentID,
		RouteID:   in.RouteID,
		Term:      in.Term,
		Year:      in.Year,
		Amount:    in.Amount,
		Method:    in.Method,
	}

	err := s.ledger.WithinSnapshot(ctx, func(tx LedgerStore) error {
		fee, err := tx.FindFee(ctx, in.RouteID)
		if err != nil {
			return &StoreError{Op: "find fee", Err: err}
		}
		if fee == nil && s.strictFees {
			return newFieldError("routeId", "no transport fee is set for this route")
		}
		schedule := models.FeeSchedule{}
		if fee != nil {
			schedule[fee.RouteID] = fee.Amount
		}

		prior, err := tx.SumPayments(ctx, payment.Key())
		if err != nil {
			return &StoreError{Op: "sum payments", Err: err}
		}

		b := ledger.ComputeBalance(schedule.FeeFor(in.RouteID), prior.Add(in.Amount))
		payment.Balance = b.Balance
		payment.Status = b.Status

		// stamped under the snapshot so creation order matches snapshot order
		payment.CreatedAt = s.nowFunc()
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return &StoreError{Op: "create payment", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, asStoreErr("record payment", err)
	}

	s.invalidate(ctx)
	s.log.Infof("recorded payment %s: student=%s route=%s %s %d amount=%s balance=%s status=%s",
		payment.ID, payment.StudentID, payment.RouteID, payment.Term, payment.Year,
		payment.Amount, payment.Balance, payment.Status)
	return payment, nil
}

// ListPayments returns matching payments newest first. reload bypasses the cache.
func (s *PaymentService) ListPayments(ctx context.Context, filter models.PaymentFilter, reload bool) ([]models.TransportPayment, error) {
	payments, err := s.cache.list(ctx, filter, reload, func() ([]models.TransportPayment, error) {
		return s.ledger.FindPayments(ctx, filter)
	})
	if err != nil {
		return nil, &StoreError{Op: "list payments", Err: err}
	}
	return payments, nil
}

// DeletePayment hard-deletes a payment. Snapshots of later payments are left as they are.
func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	if err := s.ledger.DeletePayment(ctx, id); err != nil {
		return lookupErr("payment", id, err)
	}
	s.invalidate(ctx)
	s.log.Infof("deleted payment %s", id)
	return nil
}

// FeeSchedule loads the current fee of every route
func (s *PaymentService) FeeSchedule(ctx context.Context) (models.FeeSchedule, error) {
	fees, err := s.ledger.ListFees(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list fees", Err: err}
	}
	return models.NewFeeSchedule(fees), nil
}

// Summary groups the matching payments by year, term and student with live
// balances under the current fee schedule, decorated with directory names.
func (s *PaymentService) Summary(ctx context.Context, filter models.PaymentFilter, reload bool) ([]ledger.YearGroup, error) {
	payments, err := s.ListPayments(ctx, filter, reload)
	if err != nil {
		return nil, err
	}
	fees, err := s.FeeSchedule(ctx)
	if err != nil {
		return nil, err
	}
	summary := ledger.SummarizeByGroup(payments, fees)
	if err := s.decorate(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *PaymentService) decorate(ctx context.Context, summary []ledger.YearGroup) error {
	if len(summary) == 0 {
		return nil
	}
	students, err := s.directory.ListStudents(ctx)
	if err != nil {
		return &StoreError{Op: "list students", Err: err}
	}
	routes, err := s.directory.ListRoutes(ctx)
	if err != nil {
		return &StoreError{Op: "list routes", Err: err}
	}
	studentNames := make(map[string]string, len(students))
	for _, st := range students {
		studentNames[st.ID] = st.Name
	}
	routeNames := make(map[string]string, len(routes))
	for _, r := range routes {
		routeNames[r.ID] = r.Name
	}

	for y := range summary {
		for t := range summary[y].Terms {
			for i := range summary[y].Terms[t].Students {
				sg := &summary[y].Terms[t].Students[i]
				sg.StudentName = studentNames[sg.StudentID]
				for r := range sg.Rows {
					sg.Rows[r].RouteName = routeNames[sg.Rows[r].Payment.RouteID]
				}
				for r := range sg.Routes {
					sg.Routes[r].RouteName = routeNames[sg.Routes[r].RouteID]
				}
			}
		}
	}
	return nil
}

// FeeView is a fee entry with its route's display name
type FeeView struct {
	models.TransportFee
	RouteName string `json:"routeName,omitempty"`
}

// UpsertFee creates or replaces the single fee entry of a route
func (s *PaymentService) UpsertFee(ctx context.Context, in NewFee) (*models.TransportFee, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetRoute(ctx, in.RouteID); err != nil {
		return nil, lookupErr("route", in.RouteID, err)
	}
	fee, err := s.ledger.UpsertFee(ctx, in.RouteID, *in.Amount)
	if err != nil {
		return nil, &StoreError{Op: "upsert fee", Err: err}
	}
	s.log.Infof("fee for route %s set to %s", fee.RouteID, fee.Amount)
	return fee, nil
}

// ListFees returns every fee entry with route names
func (s *PaymentService) ListFees(ctx context.Context) ([]FeeView, error) {
	fees, err := s.ledger.ListFees(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list fees", Err: err}
	}
	routes, err := s.directory.ListRoutes(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list routes", Err: err}
	}
	names := make(map[string]string, len(routes))
	for _, r := range routes {
		names[r.ID] = r.Name
	}

	views := make([]FeeView, 0, len(fees))
	for _, f := range fees {
		views = append(views, FeeView{TransportFee: f, RouteName: names[f.RouteID]})
	}
	return views, nil
}

func (s *PaymentService) DeleteFee(ctx context.Context, id string) error {
	if err := s.ledger.DeleteFee(ctx, id); err != nil {
		return lookupErr("fee", id, err)
	}
	s.log.Infof("deleted fee %s", id)
	return nil
}

// ReconcileResult reports what a reconcile run touched
type ReconcileResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

// Reconcile rewrites stored balance snapshots that no longer match a replay of
// their group under the current fee schedule.
func (s *PaymentService) Reconcile(ctx context.Context, filter models.PaymentFilter) (ReconcileResult, error) {
	payments, err := s.ledger.FindPayments(ctx, filter)
	if err != nil {
		return ReconcileResult{}, &StoreError{Op: "find payments", Err: err}
	}
	fees, err := s.FeeSchedule(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{Checked: len(payments)}
	for _, u := range ledger.ReplaySnapshots(payments, fees) {
		if err := s.ledger.UpdatePaymentSnapshot(ctx, u.PaymentID, u.Balance, u.Status); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// deleted since the read
				continue
			}
			return result, &StoreError{Op: "update payment snapshot", Err: err}
		}
		result.Updated++
	}
	if result.Updated > 0 {
		s.invalidate(ctx)
	}
	s.log.Infof("reconciled %d payments, %d snapshots rewritten", result.Checked, result.Updated)
	return result, nil
}

func (s *PaymentService) invalidate(ctx context.Context) {
	if err := s.cache.invalidate(ctx); err != nil {
		s.log.Warnf("payment cache invalidation failed: %v", err)
	}
}
