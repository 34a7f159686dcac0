package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/out-of-energy/topshop/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "topshop.db"

// Listing limits.
const (
	// DefaultPageSize is used when Filter.Size is 0.
	DefaultPageSize = 20
	// MaxPageSize is the largest accepted Filter.Size.
	MaxPageSize = 100
	// DefaultRankLimit is used when Rank is called with limit 0.
	DefaultRankLimit = 10
	// MaxRankLimit is the largest accepted rank limit.
	MaxRankLimit = 50
)

// RecordDB stores classification records in SQLite.
type RecordDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RecordDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RecordDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrNotFound is returned.
func Open(dbDir string, opts Options) (*RecordDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RecordDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (rdb *RecordDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RecordDB) Close() error {
	return rdb.db.Close()
}

func (rdb *RecordDB) createTables() error {
	schema := `
	-- Latest classification per domain
	CREATE TABLE IF NOT EXISTS records (
		domain TEXT PRIMARY KEY,
		region TEXT NOT NULL DEFAULT '',
		platform_verdict INTEGER NOT NULL DEFAULT 0,
		platform_confidence REAL NOT NULL DEFAULT 0,
		category_verdict INTEGER NOT NULL DEFAULT 0,
		category_confidence REAL NOT NULL DEFAULT 0,
		checked_at TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_records_region ON records(region);
	CREATE INDEX IF NOT EXISTS idx_records_rank ON records(region, category_confidence DESC, platform_confidence DESC);

	-- Every save, for run history
	CREATE TABLE IF NOT EXISTS record_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		platform_verdict INTEGER NOT NULL DEFAULT 0,
		platform_confidence REAL NOT NULL DEFAULT 0,
		category_verdict INTEGER NOT NULL DEFAULT 0,
		category_confidence REAL NOT NULL DEFAULT 0,
		checked_at TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_history_domain ON record_history(domain);
	CREATE INDEX IF NOT EXISTS idx_history_run ON record_history(run_id);
	`
	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// recordColumns is the column list shared by both tables, in scan order.
const recordColumns = `domain, region, platform_verdict, platform_confidence,
	category_verdict, category_confidence, checked_at, run_id, error`

// Save upserts the record keyed by domain and appends a snapshot of the
// stored row to the history. Verdict and confidence columns of kinds the
// record does not cover keep their stored values.
func (rdb *RecordDB) Save(ctx context.Context, rec model.Record) error {
	domain := strings.ToLower(strings.TrimSpace(rec.Domain))
	if domain == "" {
		return ErrEmptyDomain
	}
	checkedAt := rec.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}
	args := []any{
		domain,
		string(rec.Region),
		rec.PlatformVerdict,
		rec.PlatformConfidence,
		rec.CategoryVerdict,
		rec.CategoryConfidence,
		checkedAt.UTC().Format(time.RFC3339Nano),
		rec.RunID,
		rec.Error,
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertQuery(rec), args...); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	history := `INSERT INTO record_history (` + recordColumns + `)
	SELECT ` + recordColumns + ` FROM records WHERE domain = ?`
	if _, err := tx.ExecContext(ctx, history, domain); err != nil {
		return fmt.Errorf("failed to append record history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}
	return nil
}

// upsertQuery builds the insert-or-update statement for rec. A new row
// takes every column; an existing row only takes the columns of the kinds
// rec covers.
func upsertQuery(rec model.Record) string {
	set := []string{"region = excluded.region"}
	if rec.Covers(model.TaskKindPlatform) {
		set = append(set,
			"platform_verdict = excluded.platform_verdict",
			"platform_confidence = excluded.platform_confidence",
		)
	}
	if rec.Covers(model.TaskKindCategory) {
		set = append(set,
			"category_verdict = excluded.category_verdict",
			"category_confidence = excluded.category_confidence",
		)
	}
	set = append(set,
		"checked_at = excluded.checked_at",
		"run_id = excluded.run_id",
		"error = excluded.error",
	)
	return `INSERT INTO records (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(domain) DO UPDATE SET
		` + strings.Join(set, ",\n\t\t")
}

// Get returns the latest record for domain, or nil if none exists.
func (rdb *RecordDB) Get(ctx context.Context, domain string) (*model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE domain = ?`
	rec, err := scanRecord(rdb.db.QueryRowContext(ctx, query, strings.ToLower(domain)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// Filter narrows a listing. Nil verdict pointers and an unknown region
// match everything.
type Filter struct {
	Region          model.Region
	PlatformVerdict *bool
	CategoryVerdict *bool

	// Page is 1-based; 0 means the first page.
	Page int
	// Size is the page size in 1..MaxPageSize; 0 means DefaultPageSize.
	Size int
}

// Page is one page of a listing.
type Page struct {
	Records []model.Record `json:"records"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
}

func (f Filter) normalize() (Filter, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Size == 0 {
		f.Size = DefaultPageSize
	}
	if f.Page < 1 {
		return f, ErrInvalidPage
	}
	if f.Size < 1 || f.Size > MaxPageSize {
		return f, ErrInvalidPageSize
	}
	return f, nil
}

// List returns the records matching the filter, ordered by domain, with
// the total count of matches across all pages.
func (rdb *RecordDB) List(ctx context.Context, filter Filter) (*Page, error) {
	filter, err := filter.normalize()
	if err != nil {
		return nil, err
	}

	where := " WHERE 1=1"
	args := make([]any, 0, 5)
	if filter.Region != model.RegionUnknown {
		where += " AND region = ?"
		args = append(args, string(filter.Region))
	}
	if filter.PlatformVerdict != nil {
		where += " AND platform_verdict = ?"
		args = append(args, *filter.PlatformVerdict)
	}
	if filter.CategoryVerdict != nil {
		where += " AND category_verdict = ?"
		args = append(args, *filter.CategoryVerdict)
	}

	var total int
	if err := rdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM records` + where + ` ORDER BY domain LIMIT ? OFFSET ?`
	args = append(args, filter.Size, (filter.Page-1)*filter.Size)
	records, err := rdb.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return &Page{Records: records, Total: total, Page: filter.Page, Size: filter.Size}, nil
}

// Ranked is a record with its 1-based position in a region ranking.
type Ranked struct {
	Rank   int          `json:"rank"`
	Record model.Record `json:"record"`
}

// Rank returns the top records of a region that are positive on both
// axes and were fetched without error, ordered by category confidence
// then platform confidence, both descending. A limit of 0 means
// DefaultRankLimit.
func (rdb *RecordDB) Rank(ctx context.Context, region model.Region, limit int) ([]Ranked, error) {
	if !region.IsValid() {
		return nil, ErrInvalidRegion
	}
	if limit == 0 {
		limit = DefaultRankLimit
	}
	if limit < 1 || limit > MaxRankLimit {
		return nil, ErrInvalidLimit
	}

	query := `
	SELECT ` + recordColumns + ` FROM records
	WHERE region = ? AND platform_verdict = 1 AND category_verdict = 1 AND error = ''
	ORDER BY category_confidence DESC, platform_confidence DESC, domain
	LIMIT ?
	`
	records, err := rdb.queryRecords(ctx, query, string(region), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank records: %w", err)
	}

	ranked := make([]Ranked, len(records))
	for i, rec := range records {
		ranked[i] = Ranked{Rank: i + 1, Record: rec}
	}
	return ranked, nil
}

// History returns every saved record for domain, newest first.
func (rdb *RecordDB) History(ctx context.Context, domain string) ([]model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM record_history WHERE domain = ? ORDER BY id DESC`
	records, err := rdb.queryRecords(ctx, query, strings.ToLower(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to get record history: %w", err)
	}
	return records, nil
}

// Regions returns the distinct regions that have records.
func (rdb *RecordDB) Regions(ctx context.Context) ([]model.Region, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT region FROM records WHERE region != '' ORDER BY region`)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	defer rows.Close()

	var regions []model.Region
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, model.Region(r))
	}
	return regions, rows.Err()
}

func (rdb *RecordDB) queryRecords(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (model.Record, error) {
	var (
		rec       model.Record
		region    string
		checkedAt string
	)
	err := s.Scan(
		&rec.Domain,
		&region,
		&rec.PlatformVerdict,
		&rec.PlatformConfidence,
		&rec.CategoryVerdict,
		&rec.CategoryConfidence,
		&checkedAt,
		&rec.RunID,
		&rec.Error,
	)
	if err != nil {
		return model.Record{}, err
	}
	rec.Region = model.Region(region)
	rec.CheckedAt = parseTimestamp(checkedAt)
	return rec, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
