package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/core"
)

// sqlRepository holds the queries shared by the SQL backends.
// Rows are keyed by created_order; pattern is indexed but not unique so
// duplicate patterns keep their own precedence.
type sqlRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	name   string
}

// Save persists a rule
func (r *sqlRepository) Save(ctx context.Context, rule core.Rule) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO mail_rules (created_order, pattern, pattern_key, folder, match_type)
		VALUES (:created_order, :pattern, :pattern_key, :folder, :match_type)
	`, toRow(rule))
	if err != nil {
		return fmt.Errorf("saving rule %q: %w", rule.Pattern, err)
	}

	r.logger.Debug("Rule saved",
		zap.String("backend", r.name),
		zap.String("pattern", rule.Pattern),
		zap.Int64("order", rule.CreatedOrder))
	return nil
}

// Delete removes every rule with the given pattern, compared case-insensitively
func (r *sqlRepository) Delete(ctx context.Context, pattern string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM mail_rules WHERE pattern_key = ?", patternKey(pattern))
	if err != nil {
		return fmt.Errorf("deleting rule %q: %w", pattern, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.Warn("Failed to get rows affected", zap.Error(err))
	} else {
		r.logger.Debug("Rules deleted",
			zap.String("backend", r.name),
			zap.String("pattern", pattern),
			zap.Int64("count", rows))
	}
	return nil
}

// DeleteAll removes every rule
func (r *sqlRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM mail_rules"); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}
	return nil
}

// Load returns all rules ordered by precedence
func (r *sqlRepository) Load(ctx context.Context) ([]core.Rule, error) {
	var rows []ruleRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT created_order, pattern, pattern_key, folder, match_type
		FROM mail_rules
		ORDER BY created_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	out := make([]core.Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.rule())
	}
	return out, nil
}

// Close closes the database connection
func (r *sqlRepository) Close() error {
	if err := r.db.Close(); err != nil {
		r.logger.Error("Failed to close rule database",
			zap.String("backend", r.name),
			zap.Error(err))
		return err
	}
	return nil
}

type ruleRow struct {
	CreatedOrder int64  `db:"created_order"`
	Pattern      string `db:"pattern"`
	PatternKey   string `db:"pattern_key"`
	Folder       string `db:"folder"`
	MatchType    string `db:"match_type"`
}

func toRow(rule core.Rule) ruleRow {
	return ruleRow{
		CreatedOrder: rule.CreatedOrder,
		Pattern:      rule.Pattern,
		PatternKey:   patternKey(rule.Pattern),
		Folder:       rule.Folder,
		MatchType:    string(rule.MatchType),
	}
}

func (row ruleRow) rule() core.Rule {
	return core.Rule{
		Pattern:      row.Pattern,
		Folder:       row.Folder,
		MatchType:    core.MatchType(row.MatchType),
		CreatedOrder: row.CreatedOrder,
	}
}

func patternKey(pattern string) string {
	return strings.ToLower(strings.TrimSpace(pattern))
}
