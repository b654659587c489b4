package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type SQLDriver string

const (
	DriverSQLite   SQLDriver = "sqlite"
	DriverPostgres SQLDriver = "postgres"
)

const schemaDraftSnapshots = `
CREATE TABLE IF NOT EXISTS draft_snapshots (
  draft_key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);
`

// SQLBackend stores drafts in a single table. Both drivers accept $n
// placeholders and ON CONFLICT upserts.
type SQLBackend struct {
	db *sql.DB
}

// OpenSQLBackend opens the database and ensures the table exists.
func OpenSQLBackend(ctx context.Context, driver SQLDriver, dsn string) (*SQLBackend, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:drafts.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/template_wizard?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLBackend(ctx, db)
}

// NewSQLBackend uses an already opened database.
func NewSQLBackend(ctx context.Context, db *sql.DB) (*SQLBackend, error) {
	if _, err := db.ExecContext(ctx, schemaDraftSnapshots); err != nil {
		return nil, fmt.Errorf("ensure draft schema: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

func (b *SQLBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM draft_snapshots WHERE draft_key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (b *SQLBackend) Set(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx, `
INSERT INTO draft_snapshots (draft_key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (draft_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM draft_snapshots WHERE draft_key = $1`, key)
	return err
}

func (b *SQLBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT draft_key FROM draft_snapshots WHERE draft_key LIKE $1 ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		// sqlite LIKE ignores ASCII case.
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix matches keys starting with prefix, with the LIKE wildcards in
// prefix taken literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
