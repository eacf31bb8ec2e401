// Package db wires the gorm connection and owns the one-shot migration
// concern (auto-migrate plus legacy column-alias backfill).
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/config"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(cfg config.DatabaseConfig, log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DatabaseService")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.URL
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL required for driver %q", cfg.Driver)
		}
		dialector = postgres.Open(cfg.URL)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.Driver != "sqlite" {
		if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			serviceLog.Error("failed to enable uuid-ossp extension", "error", err)
			return nil, fmt.Errorf("enable uuid-ossp: %w", err)
		}
	}

	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

// AutoMigrateAll runs the schema migration and the legacy column-alias
// backfill. Both are one-shot startup concerns, not a runtime contract.
func (s *Service) AutoMigrateAll() error {
	s.log.Info("auto migrating tables")
	err := s.db.AutoMigrate(
		&types.Product{},
		&types.Embedding{},
		&types.Session{},
		&types.Interaction{},
		&types.RankingWeights{},
		&types.SearchLog{},
		&types.SearchResultExplanation{},
		&types.EvaluationMetric{},
		&types.CatalogUploadJob{},
	)
	if err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}
	return s.backfillLegacyColumns()
}

// backfillLegacyColumns is a one-shot migration: early ingest pipelines wrote
// "stock_quantity" before the column was renamed to "stock_qty"; if that
// legacy column still exists, copy it over once. Safe to run on every
// startup because it is a no-op once the legacy column is gone.
func (s *Service) backfillLegacyColumns() error {
	if s.db.Migrator().HasColumn(&types.Product{}, "stock_quantity") {
		s.log.Info("backfilling legacy stock_quantity column")
		if err := s.db.Exec(`UPDATE product SET stock_qty = stock_quantity WHERE stock_qty = 0`).Error; err != nil {
			return fmt.Errorf("backfill stock_quantity: %w", err)
		}
	}
	return nil
}
