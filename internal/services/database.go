package services

import (
	"time"

	glog "github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"school_transport_echo/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string, debug bool, log *glog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB, log *glog.Logger) error {
	log.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Student{},
		&models.Route{},
		&models.TransportFee{},
		&models.TransportPayment{},
		&models.TransportAttendance{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		return err
	}

	log.Info("Database migrations completed")
	return nil
}
