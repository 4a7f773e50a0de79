package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS docs (
	id   TEXT PRIMARY KEY,
	rev  TEXT NOT NULL,
	type TEXT NOT NULL,
	body TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS view_rows (
	design TEXT NOT NULL,
	view   TEXT NOT NULL,
	key    TEXT NOT NULL,
	sort   TEXT NOT NULL,
	doc_id TEXT NOT NULL REFERENCES docs(id),
	PRIMARY KEY (design, view, key, sort, doc_id)
);`

type SQLiteStore struct {
	db      *sql.DB
	designs []Design
}

var _ Store = (*SQLiteStore)(nil)

func OpenSQLite(path string, designs ...Design) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, designs: designs}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string, dst any) error {
	row := s.db.QueryRowContext(ctx, `
		SELECT body
		FROM docs
		WHERE id = ?`, id)

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	return unmarshalDoc([]byte(body), dst)
}

func (s *SQLiteStore) Create(ctx context.Context, doc any) (string, string, error) {
	d, err := prepare(s.designs, doc)
	if err != nil {
		return "", "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := putDoc(ctx, tx, d); err != nil {
		return "", "", err
	}

	if err := tx.Commit(); err != nil {
		return "", "", err
	}
	return d.Id, d.Rev, nil
}

func putDoc(ctx context.Context, db Queryer, d document) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO docs (id, rev, type, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, d.Id, d.Rev, d.Type, string(d.Body))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}

	for _, e := range d.Entries {
		_, err := db.ExecContext(ctx, `
			INSERT INTO view_rows (design, view, key, sort, doc_id)
			VALUES (?, ?, ?, ?, ?)`, e.Design, e.View, e.Key, e.Sort, d.Id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, design, view string, q ViewQuery) ([]Row, error) {
	if !findView(s.designs, design, view) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownView, design, view)
	}

	query := `
		SELECT v.doc_id, v.key, d.body
		FROM view_rows v
		INNER JOIN docs d ON d.id = v.doc_id
		WHERE v.design = ? AND v.view = ?`
	args := []any{design, view}

	if len(q.Keys) > 0 {
		query += " AND v.key IN (?" + strings.Repeat(", ?", len(q.Keys)-1) + ")"
		for _, k := range q.Keys {
			args = append(args, k)
		}
	}

	if q.Descending {
		query += " ORDER BY v.sort DESC, v.doc_id DESC"
	} else {
		query += " ORDER BY v.sort ASC, v.doc_id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			r    Row
			body string
		)
		if err := rows.Scan(&r.Id, &r.Key, &body); err != nil {
			return nil, err
		}
		r.Doc = []byte(body)
		result = append(result, r)
	}

	return result, rows.Err()
}
