package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SQLite keeps documents in a single table with a version column, which
// gives us per-document compare-and-swap without schema design per
// entity. Good enough for a remote-document-store stand-in and trivially
// durable.
type SQLite struct {
	db     *sql.DB
	logger zerolog.Logger
	subs   *subscribers
}

func NewSQLite(db *sql.DB, logger zerolog.Logger) *SQLite {
	return &SQLite{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		subs:   newSubscribers(),
	}
}

func (s *SQLite) Get(ctx context.Context, path string) (Document, error) {
	var doc Document
	doc.Path = path
	err := s.db.QueryRowContext(ctx,
		`SELECT body, version FROM documents WHERE path = ?`, path,
	).Scan(&doc.Data, &doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", path, err)
	}
	return doc, nil
}

func (s *SQLite) Create(ctx context.Context, path string, data []byte) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (path, body, version, updated_at) VALUES (?, ?, 1, ?)`,
		path, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	s.subs.notify(Event{Type: EventPut, Doc: Document{Path: path, Data: data, Version: 1}})
	return nil
}

func (s *SQLite) Set(ctx context.Context, path string, data []byte) error {
	var version int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (path, body, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT (path) DO UPDATE SET body = excluded.body, version = documents.version + 1, updated_at = excluded.updated_at
		 RETURNING version`,
		path, data, time.Now().UTC(),
	).Scan(&version)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	s.subs.notify(Event{Type: EventPut, Doc: Document{Path: path, Data: data, Version: version}})
	return nil
}

func (s *SQLite) Update(ctx context.Context, path string, version int64, data []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = ?, version = version + 1, updated_at = ? WHERE path = ? AND version = ?`,
		data, time.Now().UTC(), path, version,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if n == 0 {
		if _, getErr := s.Get(ctx, path); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	s.subs.notify(Event{Type: EventPut, Doc: Document{Path: path, Data: data, Version: version + 1}})
	return nil
}

func (s *SQLite) Remove(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.subs.notify(Event{Type: EventDelete, Doc: Document{Path: path}})
	}
	return nil
}

func (s *SQLite) RemoveVersion(ctx context.Context, path string, version int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE path = ? AND version = ?`, path, version,
	)
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if n == 0 {
		if _, getErr := s.Get(ctx, path); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	s.subs.notify(Event{Type: EventDelete, Doc: Document{Path: path, Version: version}})
	return nil
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, body, version FROM documents WHERE path LIKE ? || '%' ORDER BY path`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Path, &doc.Data, &doc.Version); err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return docs, nil
}

func (s *SQLite) Subscribe(prefix string, fn func(Event)) func() {
	return s.subs.add(prefix, fn)
}
