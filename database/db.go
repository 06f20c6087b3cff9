package database

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver for the sqlx read pool
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"timetable-backend/config"
)

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

// InitDB opens the GORM connection used for writes and CRUD.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{
		Logger: NewGormLogger(200 * time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	log.Println("✅ Successfully connected to PostgreSQL (GORM)")
	return db, nil
}

// InitReadDB opens the sqlx pool used by the joined timetable queries.
func InitReadDB(cfg *config.Config) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("postgres", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("error opening read database: %w", err)
	}
	dbx.SetMaxOpenConns(10)
	dbx.SetConnMaxIdleTime(5 * time.Minute)

	if err := dbx.Ping(); err != nil {
		dbx.Close()
		return nil, fmt.Errorf("error pinging read database: %w", err)
	}

	log.Println("✅ Successfully connected to PostgreSQL (sqlx read pool)")
	return dbx, nil
}
