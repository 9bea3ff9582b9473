package records

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores translation records in SQLite so `records --cached` works
// without a session or network.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) the local records cache and migrates
// schema.
func OpenCache(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open records cache: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		id           TEXT PRIMARY KEY,
		filename     TEXT NOT NULL,
		source_lang  TEXT NOT NULL,
		target_lang  TEXT NOT NULL,
		status       TEXT NOT NULL,
		download_url TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		synced_at    TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at)`)

	return &Cache{db: db}, nil
}

// Upsert writes or replaces the given records. A record with an empty ID is
// skipped: it cannot be addressed on a later sync.
func (c *Cache) Upsert(recs []Record) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, rec := range recs {
		if rec.ID == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO records (id, filename, source_lang, target_lang, status, download_url, created_at, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				filename     = excluded.filename,
				source_lang  = excluded.source_lang,
				target_lang  = excluded.target_lang,
				status       = excluded.status,
				download_url = excluded.download_url,
				created_at   = excluded.created_at,
				synced_at    = excluded.synced_at`,
			rec.ID,
			rec.Filename,
			rec.SourceLang,
			rec.TargetLang,
			rec.Status,
			rec.DownloadURL,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			now,
		); err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// List returns cached records, newest first. limit <= 0 means all.
func (c *Cache) List(limit int) ([]Record, error) {
	query := `SELECT id, filename, source_lang, target_lang, status, download_url, created_at FROM records ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cached records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.SourceLang, &rec.TargetLang, &rec.Status, &rec.DownloadURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cached record: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cached records: %w", err)
	}
	return out, nil
}

// Get returns a single cached record by ID.
func (c *Cache) Get(id string) (*Record, error) {
	var (
		rec       Record
		createdAt string
	)
	err := c.db.QueryRow(`SELECT id, filename, source_lang, target_lang, status, download_url, created_at FROM records WHERE id = ?`, id).Scan(
		&rec.ID, &rec.Filename, &rec.SourceLang, &rec.TargetLang, &rec.Status, &rec.DownloadURL, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached record: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}

// Prune deletes records last synced before cutoff and returns the deleted
// row count.
func (c *Cache) Prune(cutoff time.Time) (int, error) {
	res, err := c.db.Exec(`DELETE FROM records WHERE synced_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune records cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying DB.
func (c *Cache) Close() error {
	return c.db.Close()
}
