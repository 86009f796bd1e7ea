package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tap-github/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "state.db"

// Store is a unified SQLite-based storage that provides access to
// the state interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tap-github/state.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tap-github")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// StateStore returns a StateStore interface backed by this store.
func (s *Store) StateStore() driven.StateStore {
	return &stateStore{store: s}
}

// RunLog returns a RunLog interface backed by this store.
func (s *Store) RunLog() driven.RunLog {
	return &runLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== State Store ====================

// stateStore implements driven.StateStore.
type stateStore struct {
	store *Store
}

var _ driven.StateStore = (*stateStore)(nil)

// Get retrieves the bookmark of a partition.
func (s *stateStore) Get(ctx context.Context, stream, partition string) (*domain.Bookmark, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT stream, partition, context, replication_key, value, updated_at
		FROM bookmarks WHERE stream = ? AND partition = ?
	`, stream, partition)

	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Save stores or replaces a bookmark.
func (s *stateStore) Save(ctx context.Context, bookmark domain.Bookmark) error {
	parts, err := json.Marshal(bookmark.Context)
	if err != nil {
		return fmt.Errorf("marshalling bookmark context: %w", err)
	}
	if bookmark.UpdatedAt.IsZero() {
		bookmark.UpdatedAt = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO bookmarks (stream, partition, context, replication_key, value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(stream, partition) DO UPDATE SET
			context = excluded.context,
			replication_key = excluded.replication_key,
			value = excluded.value,
			updated_at = excluded.updated_at
	`, bookmark.Stream, bookmark.Partition, string(parts), bookmark.ReplicationKey, bookmark.Value,
		formatTime(bookmark.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving bookmark: %w", err)
	}
	return nil
}

// List returns every bookmark ordered by stream then partition.
func (s *stateStore) List(ctx context.Context) ([]domain.Bookmark, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT stream, partition, context, replication_key, value, updated_at
		FROM bookmarks ORDER BY stream, partition
	`)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []domain.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, *b)
	}
	return bookmarks, rows.Err()
}

// Delete removes every bookmark of a stream. An empty stream removes all bookmarks.
func (s *stateStore) Delete(ctx context.Context, stream string) error {
	var err error
	if stream == "" {
		_, err = s.store.db.ExecContext(ctx, "DELETE FROM bookmarks")
	} else {
		_, err = s.store.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE stream = ?", stream)
	}
	if err != nil {
		return fmt.Errorf("deleting bookmarks: %w", err)
	}
	return nil
}

// ==================== Run Log ====================

// runLog implements driven.RunLog.
type runLog struct {
	store *Store
}

var _ driven.RunLog = (*runLog)(nil)

// StartRun records a run as running.
func (l *runLog) StartRun(ctx context.Context, run domain.SyncRun) error {
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, records, error)
		VALUES (?, ?, ?, 0, '')
	`, run.ID, formatTime(run.StartedAt), domain.RunRunning)
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (l *runLog) FinishRun(ctx context.Context, run domain.SyncRun) error {
	res, err := l.store.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, records = ?, error = ?
		WHERE id = ?
	`, formatTime(run.FinishedAt), run.Status, run.Records, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (l *runLog) ListRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, records, error
		FROM runs ORDER BY started_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var (
			run        domain.SyncRun
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Status, &run.Records, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			if run.FinishedAt, err = parseTime(finishedAt.String); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ==================== Helpers ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (*domain.Bookmark, error) {
	var (
		b         domain.Bookmark
		parts     string
		updatedAt string
	)
	if err := row.Scan(&b.Stream, &b.Partition, &parts, &b.ReplicationKey, &b.Value, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning bookmark: %w", err)
	}
	if err := json.Unmarshal([]byte(parts), &b.Context); err != nil {
		return nil, fmt.Errorf("unmarshalling bookmark context: %w", err)
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt = t
	return &b, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
