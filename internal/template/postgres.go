package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the grimoire_templates table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS grimoire_templates (
    key         TEXT PRIMARY KEY,
    body        TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL DEFAULT 'template',
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_grimoire_templates_kind ON grimoire_templates(kind);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. It is the
// authoring-surface collaborator: the render path never touches it directly,
// it only sees definitions already loaded into the registry.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given
// database connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing
// queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// grimoire_templates table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("template: migrate: %w", err)
	}
	return nil
}

// Create implements [Store.Create].
func (s *PostgresStore) Create(ctx context.Context, def Definition) error {
	if err := Validate(def); err != nil {
		return err
	}
	if def.Kind == "" {
		def.Kind = KindTemplate
	}

	const query = `
		INSERT INTO grimoire_templates (key, body, kind, description)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.Exec(ctx, query, def.Key, def.Body, def.Kind, def.Description); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("template %q: %w", def.Key, ErrDuplicateKey)
		}
		return fmt.Errorf("template: create %q: %w", def.Key, err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, key string) (Definition, error) {
	const query = `
		SELECT key, body, kind, description, created_at, updated_at
		FROM grimoire_templates
		WHERE key = $1`

	var def Definition
	err := s.db.QueryRow(ctx, query, key).Scan(
		&def.Key, &def.Body, &def.Kind, &def.Description,
		&def.CreatedAt, &def.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("template: get %q: %w", key, err)
	}
	return def, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]Definition, error) {
	const query = `
		SELECT key, body, kind, description, created_at, updated_at
		FROM grimoire_templates
		ORDER BY key`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("template: list: %w", err)
	}
	defer rows.Close()

	var out []Definition
	for rows.Next() {
		var def Definition
		if err := rows.Scan(
			&def.Key, &def.Body, &def.Kind, &def.Description,
			&def.CreatedAt, &def.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("template: scan row: %w", err)
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template: list rows: %w", err)
	}
	return out, nil
}

// Upsert implements [Store.Upsert].
func (s *PostgresStore) Upsert(ctx context.Context, def Definition) error {
	if err := Validate(def); err != nil {
		return err
	}
	if def.Kind == "" {
		def.Kind = KindTemplate
	}

	const query = `
		INSERT INTO grimoire_templates (key, body, kind, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			body        = EXCLUDED.body,
			kind        = EXCLUDED.kind,
			description = EXCLUDED.description,
			updated_at  = now()`

	if _, err := s.db.Exec(ctx, query, def.Key, def.Body, def.Kind, def.Description); err != nil {
		return fmt.Errorf("template: upsert %q: %w", def.Key, err)
	}
	return nil
}

// Delete implements [Store.Delete].
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM grimoire_templates WHERE key = $1`, key); err != nil {
		return fmt.Errorf("template: delete %q: %w", key, err)
	}
	return nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique-violation
// error (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
