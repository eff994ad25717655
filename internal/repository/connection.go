package repository

import (
	"fmt"
	"time"

	"github.com/viacare/clinic-relay-service/internal/config"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables
func LoadDatabaseConfigFromEnv() *DatabaseConfig {
	return &DatabaseConfig{
		Host:            config.GetEnvOrDefault("DB_HOST", "localhost"),
		Port:            config.GetEnvIntOrDefault("DB_PORT", 5432),
		User:            config.GetEnvOrDefault("DB_USER", "postgres"),
		Password:        config.GetEnvOrDefault("DB_PASSWORD", ""),
		DBName:          config.GetEnvOrDefault("DB_NAME", "clinic_relay"),
		SSLMode:         config.GetEnvOrDefault("DB_SSLMODE", "disable"),
		MaxOpenConns:    config.GetEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    config.GetEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(config.GetEnvIntOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
		ConnMaxIdleTime: time.Duration(config.GetEnvIntOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 5)) * time.Minute,
	}
}

// NewDatabaseConnection creates a new GORM database connection
func NewDatabaseConnection(cfg *DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(logger.NewGORMWriter(), gormlogger.Config{
			SlowThreshold: 500 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// AutoMigrate runs database migrations for all models. The tenants table is
// owned by the admin service; migrating it here keeps local development
// self-contained and is a no-op against the shared schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Tenant{},
		&domain.Lead{},
		&domain.ContactLink{},
		&domain.ConversationLink{},
	)
}

// NewRepositoryManager creates a new repository manager with a database connection
func NewRepositoryManager() (RepositoryManager, error) {
	cfg := LoadDatabaseConfigFromEnv()
	db, err := NewDatabaseConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run auto migration: %w", err)
	}

	return NewGormRepositoryManager(db), nil
}
