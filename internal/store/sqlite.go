package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/oklog/ulid/v2"

	"github.com/convoflow/convoflow/types"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one concurrent writer; a single connection serializes
	// access through Go's pool and avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Forms ---

func (s *SQLiteStore) CreateForm(ctx context.Context, form *types.FormDefinition) error {
	if form.ID == "" {
		form.ID = newULID()
	}
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now

	fieldsJSON, err := sonic.Marshal(form.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO forms (id, name, description, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		form.ID, form.Name, form.Description, string(fieldsJSON), form.CreatedAt, form.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert form: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetForm(ctx context.Context, id string) (*types.FormDefinition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, fields, created_at, updated_at FROM forms WHERE id = ?`, id)
	return scanForm(row)
}

func (s *SQLiteStore) ListForms(ctx context.Context) ([]*types.FormDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, fields, created_at, updated_at FROM forms ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var forms []*types.FormDefinition
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (*types.FormDefinition, error) {
	var form types.FormDefinition
	var fieldsJSON string
	err := row.Scan(&form.ID, &form.Name, &form.Description, &fieldsJSON, &form.CreatedAt, &form.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan form: %w", err)
	}
	if err := sonic.UnmarshalString(fieldsJSON, &form.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return &form, nil
}

// --- Sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, formID string) (*types.Session, error) {
	if _, err := s.GetForm(ctx, formID); err != nil {
		return nil, err
	}
	session := &types.Session{
		ID:        newULID(),
		FormID:    formID,
		Status:    types.SessionActive,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, form_id, status, started_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.FormID, session.Status, session.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var session types.Session
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, form_id, status, started_at, completed_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.FormID, &session.Status, &session.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var turn types.Turn
		if err := rows.Scan(&turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		session.Turns = append(session.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cfRows, err := s.db.QueryContext(ctx,
		`SELECT field_id, value, collected_at FROM collected_fields WHERE session_id = ? ORDER BY collected_at, field_id`, id)
	if err != nil {
		return nil, fmt.Errorf("list collected fields: %w", err)
	}
	defer cfRows.Close()
	for cfRows.Next() {
		var cf types.CollectedField
		var valueJSON string
		if err := cfRows.Scan(&cf.FieldID, &valueJSON, &cf.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan collected field: %w", err)
		}
		if err := sonic.UnmarshalString(valueJSON, &cf.Value); err != nil {
			return nil, fmt.Errorf("unmarshal collected value: %w", err)
		}
		session.Collected = append(session.Collected, cf)
	}
	return &session, cfRows.Err()
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, turn types.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, turn.Role, turn.Content, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertCollectedField(ctx context.Context, sessionID string, cf types.CollectedField) error {
	valueJSON, err := sonic.Marshal(cf.Value)
	if err != nil {
		return fmt.Errorf("marshal collected value: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collected_fields (session_id, field_id, value, collected_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, field_id) DO UPDATE SET value = excluded.value, collected_at = excluded.collected_at`,
		sessionID, cf.FieldID, string(valueJSON), cf.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert collected field: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetSessionStatus(ctx context.Context, sessionID string, status types.SessionStatus) error {
	var completedAt any
	if status == types.SessionCompleted {
		completedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?`,
		status, completedAt, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
