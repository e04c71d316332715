// Package catalog provides the SQLite-backed lookup service for providers,
// roles, and per-project role-to-provider bindings, plus the asynchronous
// completed-task log. It is a plain key-value style store; the orchestration
// core only consumes its Resolver and TaskLogger surfaces.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mosaicdev/chorus/internal/provider"
	"github.com/mosaicdev/chorus/pkg/models"
)

// DB wraps an SQLite database connection with catalog operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens an SQLite database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		stmts   []string
	}{
		{
			version: 1,
			stmts: []string{
				`CREATE TABLE IF NOT EXISTS roles (
					id TEXT PRIMARY KEY,
					slug TEXT NOT NULL UNIQUE,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE IF NOT EXISTS providers (
					id TEXT PRIMARY KEY,
					slug TEXT NOT NULL UNIQUE,
					name TEXT NOT NULL,
					vendor TEXT NOT NULL,
					model TEXT NOT NULL,
					api_key_env TEXT NOT NULL DEFAULT '',
					base_url TEXT NOT NULL DEFAULT '',
					use_bedrock INTEGER NOT NULL DEFAULT 0,
					aws_region TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE IF NOT EXISTS role_bindings (
					project_id TEXT NOT NULL,
					role_id TEXT NOT NULL REFERENCES roles(id),
					provider_id TEXT NOT NULL REFERENCES providers(id),
					priority INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (project_id, role_id, provider_id)
				)`,
			},
		},
		{
			version: 2,
			stmts: []string{
				`CREATE TABLE IF NOT EXISTS task_logs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					project_id TEXT NOT NULL,
					role_slug TEXT NOT NULL,
					provider_slug TEXT NOT NULL,
					input TEXT NOT NULL,
					output TEXT NOT NULL,
					status TEXT NOT NULL,
					duration_ms INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_task_logs_project ON task_logs(project_id)`,
			},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := db.conn.Exec(stmt); err != nil {
				return fmt.Errorf("apply migration %d: %w", m.version, err)
			}
		}
		if _, err := db.conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertRole inserts or updates a role by slug. Empty IDs are assigned.
func (db *DB) UpsertRole(ctx context.Context, role models.Role) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO roles (id, slug, name, description) VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name=excluded.name, description=excluded.description
	`, role.ID, role.Slug, role.Name, role.Description)
	if err != nil {
		return fmt.Errorf("upsert role %s: %w", role.Slug, err)
	}
	return nil
}

// GetRole returns the role with the given slug, or sql.ErrNoRows.
func (db *DB) GetRole(ctx context.Context, slug string) (*models.Role, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx,
		"SELECT id, slug, name, description FROM roles WHERE slug = ?", slug)
	var r models.Role
	if err := row.Scan(&r.ID, &r.Slug, &r.Name, &r.Description); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoles returns all roles ordered by slug.
func (db *DB) ListRoles(ctx context.Context) ([]models.Role, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, slug, name, description FROM roles ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// UpsertProvider inserts or updates a provider by slug. Empty IDs are assigned.
func (db *DB) UpsertProvider(ctx context.Context, d provider.Descriptor) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	useBedrock := 0
	if d.UseBedrock {
		useBedrock = 1
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO providers (id, slug, name, vendor, model, api_key_env, base_url, use_bedrock, aws_region)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name=excluded.name, vendor=excluded.vendor, model=excluded.model,
			api_key_env=excluded.api_key_env, base_url=excluded.base_url,
			use_bedrock=excluded.use_bedrock, aws_region=excluded.aws_region
	`, d.ID, d.Slug, d.Name, string(d.Vendor), d.Model, d.APIKeyEnv, d.BaseURL, useBedrock, d.AWSRegion)
	if err != nil {
		return fmt.Errorf("upsert provider %s: %w", d.Slug, err)
	}
	return nil
}

// GetProvider returns the provider with the given slug, or sql.ErrNoRows.
func (db *DB) GetProvider(ctx context.Context, slug string) (*provider.Descriptor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, slug, name, vendor, model, api_key_env, base_url, use_bedrock, aws_region
		FROM providers WHERE slug = ?`, slug)
	return scanProvider(row)
}

// ListProviders returns all providers ordered by slug.
func (db *DB) ListProviders(ctx context.Context) ([]provider.Descriptor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, slug, name, vendor, model, api_key_env, base_url, use_bedrock, aws_region
		FROM providers ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []provider.Descriptor
	for rows.Next() {
		d, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProvider(s scanner) (*provider.Descriptor, error) {
	var d provider.Descriptor
	var vendor string
	var useBedrock int
	if err := s.Scan(&d.ID, &d.Slug, &d.Name, &vendor, &d.Model,
		&d.APIKeyEnv, &d.BaseURL, &useBedrock, &d.AWSRegion); err != nil {
		return nil, err
	}
	d.Vendor = provider.Vendor(vendor)
	d.UseBedrock = useBedrock == 1
	return &d, nil
}

// BindRole binds a role to a provider for a project with the given priority.
// Higher priorities win during resolution.
func (db *DB) BindRole(ctx context.Context, projectID, roleSlug, providerSlug string, priority int) error {
	role, err := db.GetRole(ctx, roleSlug)
	if err != nil {
		return fmt.Errorf("bind role: look up role %s: %w", roleSlug, err)
	}
	prov, err := db.GetProvider(ctx, providerSlug)
	if err != nil {
		return fmt.Errorf("bind role: look up provider %s: %w", providerSlug, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO role_bindings (project_id, role_id, provider_id, priority)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, role_id, provider_id) DO UPDATE SET priority=excluded.priority
	`, projectID, role.ID, prov.ID, priority)
	if err != nil {
		return fmt.Errorf("bind role %s to %s: %w", roleSlug, providerSlug, err)
	}
	return nil
}

// boundProvider returns the highest-priority provider bound to the role for
// the project, or sql.ErrNoRows when no binding exists.
func (db *DB) boundProvider(ctx context.Context, projectID, roleID string) (*provider.Descriptor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT p.id, p.slug, p.name, p.vendor, p.model, p.api_key_env, p.base_url, p.use_bedrock, p.aws_region
		FROM role_bindings b JOIN providers p ON p.id = b.provider_id
		WHERE b.project_id = ? AND b.role_id = ?
		ORDER BY b.priority DESC LIMIT 1`, projectID, roleID)
	return scanProvider(row)
}
