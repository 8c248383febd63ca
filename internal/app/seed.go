package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// runSeed executes the SQL script at path as one batch. Both drivers accept
// multiple statements per Exec. Scripts run on every start, so they should
// be idempotent (CREATE TABLE IF NOT EXISTS and the like).
func runSeed(ctx context.Context, db *sql.DB, path string) error {
	script, err := os.ReadFile(path) //nolint:gosec // operator-supplied seed script
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if strings.TrimSpace(string(script)) == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("run seed %s: %w", path, err)
	}
	return nil
}
