package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitemirror/internal/model"
)

// DBFile is the database file name inside the history directory.
const DBFile = "history.db"

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores finished runs.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the mirror command.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database in dir.
func Open(dir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		domain TEXT NOT NULL,
		mode TEXT NOT NULL,
		proxy_base TEXT,
		output_dir TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_processed INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		resources_failed INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		frontier_remaining INTEGER NOT NULL,
		termination TEXT NOT NULL,
		manifest_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		path TEXT NOT NULL,
		category TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run without its file list.
type RunRecord struct {
	ID                string
	Target            string
	Domain            string
	Mode              model.Mode
	ProxyBase         string
	OutputDir         string
	StartedAt         time.Time
	FinishedAt        time.Time
	PagesProcessed    int
	PagesFailed       int
	ResourcesFailed   int
	Visited           int
	FrontierRemaining int
	Termination       model.Termination
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun stores run and the files it wrote in one transaction. A run
// without an ID is given a new UUID.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	manifestJSON, err := json.Marshal(model.NewManifest(run))
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, target, domain, mode, proxy_base, output_dir, started_at, finished_at,
		pages_processed, pages_failed, resources_failed, visited, frontier_remaining, termination, manifest_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Target.URL, run.Target.Domain, run.Mode.String(), run.ProxyBase, run.OutputDir,
		formatTimestamp(run.StartedAt), formatTimestamp(run.FinishedAt),
		run.PagesProcessed, run.PagesFailed, run.ResourcesFailed, run.State.VisitedCount(),
		run.FrontierRemaining, string(run.Termination), string(manifestJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO files (run_id, url, path, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range run.State.Files() {
		if _, err := stmt.ExecContext(ctx, run.ID, f.URL, f.Path, f.Category.String()); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, target, domain, mode, proxy_base, output_dir, started_at, finished_at,
	pages_processed, pages_failed, resources_failed, visited, frontier_remaining, termination`

// ListRuns returns runs newest first. A non-empty domain restricts the list
// to that site; limit <= 0 means no limit.
func (h *HistoryDB) ListRuns(ctx context.Context, domain string, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if domain != "" {
		query += ` WHERE domain = ?`
		args = append(args, domain)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with id.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// GetRunManifest returns the manifest stored with run id.
func (h *HistoryDB) GetRunManifest(ctx context.Context, id string) (*model.Manifest, error) {
	var data string
	err := h.db.QueryRowContext(ctx, `SELECT manifest_json FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}
	var m model.Manifest
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// GetRunFiles returns the files run id wrote, ordered by URL.
func (h *HistoryDB) GetRunFiles(ctx context.Context, id string) ([]model.FileEntry, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT url, path, category FROM files WHERE run_id = ? ORDER BY url`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []model.FileEntry
	for rows.Next() {
		var f model.FileEntry
		var category string
		if err := rows.Scan(&f.URL, &f.Path, &category); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Category = model.ParseCategory(category)
		files = append(files, f)
	}
	return files, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		r                     RunRecord
		mode, termination     string
		proxyBase             sql.NullString
		startedAt, finishedAt string
	)
	err := row.Scan(&r.ID, &r.Target, &r.Domain, &mode, &proxyBase, &r.OutputDir, &startedAt, &finishedAt,
		&r.PagesProcessed, &r.PagesFailed, &r.ResourcesFailed, &r.Visited, &r.FrontierRemaining, &termination)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	m, err := model.ParseMode(mode)
	if err != nil {
		return RunRecord{}, err
	}
	r.Mode = m
	r.ProxyBase = proxyBase.String
	r.StartedAt = parseTimestamp(startedAt)
	r.FinishedAt = parseTimestamp(finishedAt)
	r.Termination = model.Termination(termination)
	return r, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
