package rules

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// MySQLRepository is a MySQL implementation of core.RuleRepository
type MySQLRepository struct {
	sqlRepository
}

// NewMySQLRepository connects to MySQL and ensures the rule table exists
func NewMySQLRepository(dsn string, logger *zap.Logger) (*MySQLRepository, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS mail_rules (
			created_order BIGINT PRIMARY KEY,
			pattern VARCHAR(512) NOT NULL,
			pattern_key VARCHAR(512) NOT NULL,
			folder VARCHAR(255) NOT NULL,
			match_type VARCHAR(16) NOT NULL,
			INDEX idx_mail_rules_pattern_key (pattern_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLRepository{sqlRepository{db: db, logger: logger, name: "mysql"}}, nil
}
