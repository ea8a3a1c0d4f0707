package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"puzzled/internal/logging"
	"puzzled/internal/types"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite persists sessions in a SQLite database. Either the cgo driver
// ("sqlite3") or the pure Go one ("sqlite") can back it.
type SQLite struct {
	db     *sql.DB
	dbPath string
	driver string
	mu     sync.RWMutex
}

// NewSQLite creates or opens the database at path.
func NewSQLite(driver, path string) (*SQLite, error) {
	if driver == "" {
		driver = "sqlite3"
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var dsn string
	switch driver {
	case "sqlite3":
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	case "sqlite":
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	default:
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db, dbPath: path, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("opened session database %s (driver %s)", path, driver)
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *SQLite) initSchema() error {
	schema := `
	-- One puzzle per session
	CREATE TABLE IF NOT EXISTS instances (
		session_id TEXT PRIMARY KEY,
		asset TEXT NOT NULL,
		cols INTEGER NOT NULL,
		rows INTEGER NOT NULL,
		fragment_width INTEGER NOT NULL,
		fragment_height INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	-- Fragments of each puzzle
	CREATE TABLE IF NOT EXISTS fragments (
		session_id TEXT NOT NULL REFERENCES instances(session_id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		image_name TEXT NOT NULL,
		home_col INTEGER NOT NULL,
		home_row INTEGER NOT NULL,
		PRIMARY KEY (session_id, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// Get implements Sessions.
func (s *SQLite) Get(ctx context.Context, session string) (*types.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst := &types.Instance{Session: session, Fragments: make(map[int]types.Fragment)}
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT asset, cols, rows, fragment_width, fragment_height, created_at
		FROM instances WHERE session_id = ?`, session).
		Scan(&inst.Asset, &inst.Cols, &inst.Rows, &inst.FragmentWidth, &inst.FragmentHeight, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(session)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session %s: %w", types.ErrStorage, session, err)
	}
	inst.CreatedAt = time.Unix(0, created).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, x, y, width, height, image_name, home_col, home_row
		FROM fragments WHERE session_id = ? ORDER BY id`, session)
	if err != nil {
		return nil, fmt.Errorf("%w: load fragments %s: %w", types.ErrStorage, session, err)
	}
	defer rows.Close()

	for rows.Next() {
		var f types.Fragment
		if err := rows.Scan(&f.ID, &f.X, &f.Y, &f.Width, &f.Height, &f.ImageName, &f.Home.Col, &f.Home.Row); err != nil {
			return nil, fmt.Errorf("%w: scan fragment: %w", types.ErrStorage, err)
		}
		inst.Fragments[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	return inst, nil
}

// Put implements Sessions. The previous instance and its fragments are
// replaced in one transaction.
func (s *SQLite) Put(ctx context.Context, inst *types.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", types.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE session_id = ?`, inst.Session); err != nil {
		return fmt.Errorf("%w: clear fragments: %w", types.ErrStorage, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO instances
		(session_id, asset, cols, rows, fragment_width, fragment_height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inst.Session, inst.Asset, inst.Cols, inst.Rows, inst.FragmentWidth, inst.FragmentHeight,
		inst.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("%w: save instance: %w", types.ErrStorage, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments
		(session_id, id, x, y, width, height, image_name, home_col, home_row)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", types.ErrStorage, err)
	}
	defer stmt.Close()

	for _, f := range inst.Sorted() {
		if _, err := stmt.ExecContext(ctx, inst.Session, f.ID, f.X, f.Y, f.Width, f.Height,
			f.ImageName, f.Home.Col, f.Home.Row); err != nil {
			return fmt.Errorf("%w: save fragment %d: %w", types.ErrStorage, f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", types.ErrStorage, err)
	}
	return nil
}

// Delete implements Sessions.
func (s *SQLite) Delete(ctx context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", types.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE session_id = ?`, session); err != nil {
		return fmt.Errorf("%w: delete fragments: %w", types.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE session_id = ?`, session); err != nil {
		return fmt.Errorf("%w: delete instance: %w", types.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", types.ErrStorage, err)
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	return n, nil
}
