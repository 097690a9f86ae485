package rules

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteRepository is a SQLite implementation of core.RuleRepository
type SQLiteRepository struct {
	sqlRepository
}

// NewSQLiteRepository opens (or creates) the rule database at dbPath
func NewSQLiteRepository(dbPath string, logger *zap.Logger) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS mail_rules (
			created_order INTEGER PRIMARY KEY,
			pattern TEXT NOT NULL,
			pattern_key TEXT NOT NULL,
			folder TEXT NOT NULL,
			match_type TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_mail_rules_pattern_key ON mail_rules(pattern_key)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteRepository{sqlRepository{db: db, logger: logger, name: "sqlite"}}, nil
}
