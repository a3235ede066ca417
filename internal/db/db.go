package db

import (
	"fmt"
	stdlog "log"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nurpe/proposals/internal/config"
)

func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	dbLog := log.With().Str("component", "gorm").Logger()
	database, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger: gormlogger.New(stdlog.New(dbLog, "", 0), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	log.Info().Int("max_open_conns", cfg.DB.MaxOpenConns).Msg("database connected")
	return database, nil
}

// Migrate brings the schema up to date. Statements are idempotent.
func Migrate(database *gorm.DB, log zerolog.Logger) error {
	if err := runMigrations(database); err != nil {
		return err
	}
	log.Info().Int("statements", len(migrationStatements)).Msg("migrations applied")
	return nil
}
