package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SqliteStore is a single-node ObjectStore backend. It keeps the whole
// artifact set in one objects table and emulates conditional writes with
// a transaction around the etag check.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (and if needed initializes) a SQLite-backed store.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return store, nil
}

func (s *SqliteStore) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS objects (
			key TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			etag TEXT NOT NULL,
			uploaded_at DATETIME NOT NULL,
			metadata TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create objects table: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) Get(ctx context.Context, key string) (*Object, error) {
	var (
		obj          Object
		metadataJSON string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT key, body, etag, uploaded_at, metadata FROM objects WHERE key = ?", key,
	).Scan(&obj.Key, &obj.Body, &obj.ETag, &obj.UploadedAt, &metadataJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	obj.Size = int64(len(obj.Body))
	if err := json.Unmarshal([]byte(metadataJSON), &obj.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", key, err)
	}
	return &obj, nil
}

func (s *SqliteStore) Put(ctx context.Context, key string, body []byte, opt PutOptions) error {
	metadata := opt.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if opt.IfMatch != "" {
		var etag string
		err := tx.QueryRowContext(ctx, "SELECT etag FROM objects WHERE key = ?", key).Scan(&etag)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && etag != opt.IfMatch) {
			return ErrPreconditionFailed
		}
		if err != nil {
			return fmt.Errorf("failed to check etag for %s: %w", key, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO objects (key, body, etag, uploaded_at, metadata) VALUES (?, ?, ?, ?, ?)",
		key, body, ContentETag(body), time.Now().UTC(), string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *SqliteStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, LENGTH(body), uploaded_at FROM objects WHERE key LIKE ? || '%' ORDER BY key", prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %s: %w", prefix, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Error("failed to close objects query", "err", closeErr)
		}
	}()

	var infos []ObjectInfo
	for rows.Next() {
		var info ObjectInfo
		if err := rows.Scan(&info.Key, &info.Size, &info.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
