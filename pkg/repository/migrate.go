package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/tendant/simple-admission/pkg/repository/migrations"
)

const migrationTable = "schema_migrations"

// Migrate applies the embedded migrations for the active driver. Each file
// runs at most once and is recorded in schema_migrations.
func (d *DB) Migrate(ctx context.Context) error {
	migrationFS, root := migrationSource(d.cfg.Driver)

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	conn := d.Conn()
	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := conn.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := conn.QueryRowxContext(ctx,
			conn.Rebind("SELECT 1 FROM "+migrationTable+" WHERE name = ?"), file,
		).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, path.Join(root, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind("INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING"),
			file, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
		d.logger.Info("applied migration", "name", file, "driver", d.cfg.Driver)
	}

	return nil
}

func migrationSource(driver string) (fs.FS, string) {
	if driver == DriverSQLite {
		return migrations.SQLite, "sqlite"
	}
	return migrations.Postgres, "postgres"
}

// extractUp returns the SQL in the "-- +migrate Up" section.
func extractUp(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, up)
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, down)
	if downIdx == -1 {
		return content[upIdx+len(up):]
	}
	return content[upIdx+len(up) : downIdx]
}

var requiredTables = []string{"intentions", "invites", "members", "rate_limit_entries", "revoked_tokens"}

// CheckSchema verifies that every table the repositories use exists. It is
// meant for deployments that run migrations out of band.
func (d *DB) CheckSchema(ctx context.Context) error {
	conn := d.Conn()
	for _, table := range requiredTables {
		rows, err := conn.QueryContext(ctx, "SELECT 1 FROM "+table+" WHERE 1 = 0")
		if err != nil {
			return fmt.Errorf("missing table %q, run migrations first: %w", table, err)
		}
		_ = rows.Close()
	}
	return nil
}
