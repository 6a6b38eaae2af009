package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"racehub_backend/internals/configs"
	bibModel "racehub_backend/internals/features/races/bibs/model"
	eventModel "racehub_backend/internals/features/races/events/model"
	paymentModel "racehub_backend/internals/features/races/payments/model"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

var DB *gorm.DB

func DSN(cfg configs.Config) string {
	// statement_timeout: query nyangkut tidak menahan row lock bib_counters terlalu lama
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=racehub&options=-c statement_timeout=5000",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode,
	)
}

func ConnectDB(cfg configs.Config) *gorm.DB {
	log.Println("🔌 Koneksi ke PostgreSQL...")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(cfg),
		PreferSimpleProtocol: true, // 👍 cocok untuk PgBouncer (transaction pooling)
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
	})
	if err != nil {
		log.Fatalf("❌ Gagal konek DB: %v", err)
	}
	DB = db
	log.Println("✅ DB connected.")
	return db
}

func TunePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func WarmUpQueries(db *gorm.DB) {
	go func() {
		time.Sleep(500 * time.Millisecond) // beri waktu server naik
		if err := Ping(db); err != nil {
			log.Printf("warm-up ping err: %v", err)
		}
	}()
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Migrate creates or updates every table the reconciliation core touches.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&eventModel.Event{},
		&eventModel.EventCategory{},
		&regModel.Registration{},
		&bibModel.BibCounter{},
		&paymentModel.PaymentGatewayEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
