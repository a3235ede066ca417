package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS proposals (
		id BIGSERIAL PRIMARY KEY,
		client_name TEXT NOT NULL,
		services JSONB NOT NULL,
		pricing JSONB NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		total_amount DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'proposals' AND column_name = 'notes' AND is_nullable = 'YES') THEN
			UPDATE proposals SET notes = '' WHERE notes IS NULL;
			ALTER TABLE proposals ALTER COLUMN notes SET NOT NULL;
			ALTER TABLE proposals ALTER COLUMN notes SET DEFAULT '';
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'proposals' AND column_name = 'total_amount' AND data_type = 'numeric') THEN
			ALTER TABLE proposals ALTER COLUMN total_amount TYPE DOUBLE PRECISION;
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_proposals_created_at ON proposals (created_at DESC, id DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
