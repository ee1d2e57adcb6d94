package metadata

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists records in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// WAL mode is enabled so the daemon can read while a save is in flight.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate creates the records table if it doesn't exist.
func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS records (
		file_name TEXT PRIMARY KEY,
		file_size INTEGER NOT NULL,
		node_size REAL NOT NULL DEFAULT 0,
		hyperlink_count INTEGER NOT NULL DEFAULT 0,
		sha1 TEXT NOT NULL DEFAULT '',
		node_id TEXT NOT NULL DEFAULT '',
		last_modified DATETIME NOT NULL,
		external_link TEXT NOT NULL DEFAULT '',
		last_processed DATETIME,

		-- Target file -> co-occurrence count, stored as a JSON object
		topic_counts JSON NOT NULL DEFAULT '{}'
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	return nil
}

// Load returns every record keyed by file name.
func (s *SQLiteStore) Load() (map[string]Record, error) {
	rows, err := s.db.Query(`
		SELECT file_name, file_size, node_size, hyperlink_count, sha1,
		       node_id, last_modified, external_link, last_processed, topic_counts
		FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records[rec.FileName] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record iteration failed: %w", err)
	}
	return records, nil
}

// Save replaces the stored set wholesale inside one transaction.
func (s *SQLiteStore) Save(records map[string]Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (
			file_name, file_size, node_size, hyperlink_count, sha1,
			node_id, last_modified, external_link, last_processed, topic_counts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		topics, err := json.Marshal(rec.TopicCounts)
		if err != nil {
			return fmt.Errorf("failed to encode topic counts for %s: %w", rec.FileName, err)
		}
		var lastProcessed interface{}
		if rec.LastProcessed != nil {
			lastProcessed = *rec.LastProcessed
		}
		if _, err := stmt.Exec(
			rec.FileName, rec.FileSize, rec.NodeSize, rec.HyperlinkCount, rec.SHA1,
			rec.NodeID, rec.LastModified, rec.ExternalLink, lastProcessed, string(topics),
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.FileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// Get looks up one record by file name.
func (s *SQLiteStore) Get(fileName string) (Record, bool, error) {
	row := s.db.QueryRow(`
		SELECT file_name, file_size, node_size, hyperlink_count, sha1,
		       node_id, last_modified, external_link, last_processed, topic_counts
		FROM records WHERE file_name = ?`, fileName)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var lastProcessed sql.NullTime
	var topics string

	err := row.Scan(
		&rec.FileName, &rec.FileSize, &rec.NodeSize, &rec.HyperlinkCount, &rec.SHA1,
		&rec.NodeID, &rec.LastModified, &rec.ExternalLink, &lastProcessed, &topics,
	)
	if err == sql.ErrNoRows {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	if lastProcessed.Valid {
		t := lastProcessed.Time
		rec.LastProcessed = &t
	}
	if topics != "" {
		if err := json.Unmarshal([]byte(topics), &rec.TopicCounts); err != nil {
			return Record{}, fmt.Errorf("failed to decode topic counts for %s: %w", rec.FileName, err)
		}
	}
	return rec, nil
}
