package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id             TEXT PRIMARY KEY,
    at             TEXT NOT NULL,
    input_name     TEXT NOT NULL DEFAULT '',
    input_hash     TEXT NOT NULL DEFAULT '',
    source         TEXT NOT NULL DEFAULT '',
    target         TEXT NOT NULL DEFAULT '',
    beams          INTEGER NOT NULL DEFAULT 0,
    control_points INTEGER NOT NULL DEFAULT 0,
    output_uid     TEXT NOT NULL DEFAULT '',
    warnings       TEXT NOT NULL DEFAULT '[]',
    code           TEXT NOT NULL DEFAULT '',
    message        TEXT NOT NULL DEFAULT '',
    duration_ns    INTEGER NOT NULL DEFAULT 0,
    cache_hit      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_conversions_at ON conversions(at);
`

// timeLayout is fixed width so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps history in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	e = prepare(e)
	warnings, err := json.Marshal(e.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO conversions
        (id, at, input_name, input_hash, source, target, beams, control_points,
         output_uid, warnings, code, message, duration_ns, cache_hit)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time.Format(timeLayout), e.InputName, e.InputHash, e.Source, e.Target,
		e.Beams, e.ControlPoints, e.OutputUID, string(warnings), string(e.Code), e.Message,
		int64(e.Duration), boolInt(e.CacheHit))
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, at, input_name, input_hash, source, target,
        beams, control_points, output_uid, warnings, code, message, duration_ns, cache_hit
        FROM conversions ORDER BY at DESC, rowid DESC LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			at       string
			warnings string
			code     string
			duration int64
		)
		if err := rows.Scan(&e.ID, &at, &e.InputName, &e.InputHash, &e.Source, &e.Target,
			&e.Beams, &e.ControlPoints, &e.OutputUID, &warnings, &code, &e.Message,
			&duration, &e.CacheHit); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if e.Time, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("history entry %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(warnings), &e.Warnings); err != nil {
			return nil, fmt.Errorf("history entry %s warnings: %w", e.ID, err)
		}
		e.Code = errs.Code(code)
		e.Duration = time.Duration(duration)
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
