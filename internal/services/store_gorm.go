package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school_transport_echo/internal/models"
)

// GormStore keeps the ledger in Postgres
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Name() string { return "postgres" }

// DB exposes the connection for the scheduled task tables
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ledgerLockKey is the advisory lock held by every snapshot transaction
const ledgerLockKey = 0x7472616e73 // "trans"

// WithinSnapshot runs fn in a transaction holding the ledger advisory lock.
// Callers are serialized, and since the isolation is READ COMMITTED every read
// after the lock sees all payments committed by earlier callers.
func (s *GormStore) WithinSnapshot(ctx context.Context, fn func(LedgerStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ledgerLockKey).Error; err != nil {
			return errors.Wrap(err, "ledger lock")
		}
		return fn(&GormStore{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (s *GormStore) CreatePayment(ctx context.Context, p *models.TransportPayment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(p).Error, "create payment")
}

func (s *GormStore) FindPayments(ctx context.Context, filter models.PaymentFilter) ([]models.TransportPayment, error) {
	query := s.db.WithContext(ctx).Model(&models.TransportPayment{})
	if filter.Term != "" {
		query = query.Where("term = ?", filter.Term)
	}
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.RouteID != "" {
		query = query.Where("route_id = ?", filter.RouteID)
	}

	var payments []models.TransportPayment
	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, errors.Wrap(err, "find payments")
	}
	return payments, nil
}

func (s *GormStore) SumPayments(ctx context.Context, key models.PaymentKey) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.TransportPayment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("student_id = ? AND route_id = ? AND term = ? AND year = ?", key.StudentID, key.RouteID, key.Term, key.Year).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum payments")
	}
	return total, nil
}

func (s *GormStore) DeletePayment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.TransportPayment{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete payment")
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdatePaymentSnapshot(ctx context.Context, id string, balance decimal.Decimal, status models.PaymentStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.TransportPayment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"balance": balance, "status": status})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update payment snapshot")
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *GormStore) UpsertFee(ctx context.Context, routeID string, amount decimal.Decimal) (*models.TransportFee, error) {
	db := s.db.WithContext(ctx)
	fee := models.TransportFee{ID: uuid.NewString(), RouteID: routeID, Amount: amount}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "route_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&fee).Error
	if err != nil {
		return nil, errors.Wrap(err, "upsert fee")
	}

	var stored models.TransportFee
	if err := db.Where("route_id = ?", routeID).First(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "reload fee")
	}
	return &stored, nil
}

func (s *GormStore) FindFee(ctx context.Context, routeID string) (*models.TransportFee, error) {
	var fee models.TransportFee
	err := s.db.WithContext(ctx).Where("route_id = ?", routeID).First(&fee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find fee")
	}
	return &fee, nil
}

func (s *GormStore) ListFees(ctx context.Context) ([]models.TransportFee, error) {
	var fees []models.TransportFee
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&fees).Error; err != nil {
		return nil, errors.Wrap(err, "list fees")
	}
	return fees, nil
}

func (s *GormStore) DeleteFee(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.TransportFee{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete fee")
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := s.first(ctx, &student, id); err != nil {
		return nil, err
	}
	return &student, nil
}

func (s *GormStore) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	var route models.Route
	if err := s.first(ctx, &route, id); err != nil {
		return nil, err
	}
	return &route, nil
}

func (s *GormStore) first(ctx context.Context, dest interface{}, id string) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return errors.Wrap(err, "lookup")
}

func (s *GormStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&students).Error; err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	return students, nil
}

func (s *GormStore) ListRoutes(ctx context.Context) ([]models.Route, error) {
	var routes []models.Route
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&routes).Error; err != nil {
		return nil, errors.Wrap(err, "list routes")
	}
	return routes, nil
}

func (s *GormStore) UpsertAttendance(ctx context.Context, a *models.TransportAttendance) error {
	db := s.db.WithContext(ctx)
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "route_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"present", "bus_id", "updated_at"}),
	}).Create(a).Error
	if err != nil {
		return errors.Wrap(err, "upsert attendance")
	}

	// on conflict the stored row keeps its own id and createdAt
	var stored models.TransportAttendance
	err = db.Where("student_id = ? AND route_id = ? AND date = ?", a.StudentID, a.RouteID, a.Date).First(&stored).Error
	if err != nil {
		return errors.Wrap(err, "reload attendance")
	}
	*a = stored
	return nil
}

func (s *GormStore) FindAttendance(ctx context.Context, date, routeID string) ([]models.TransportAttendance, error) {
	query := s.db.WithContext(ctx).Model(&models.TransportAttendance{})
	if date != "" {
		query = query.Where("date = ?", date)
	}
	if routeID != "" {
		query = query.Where("route_id = ?", routeID)
	}
	var records []models.TransportAttendance
	if err := query.Order("student_id ASC").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "find attendance")
	}
	return records, nil
}
