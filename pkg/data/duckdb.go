package data

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/pkg/errors"
)

const progressSchema = `
CREATE TABLE IF NOT EXISTS progress (
	work_id        VARCHAR PRIMARY KEY,
	title          VARCHAR NOT NULL,
	next_chapter   INTEGER NOT NULL,
	total_chapters INTEGER NOT NULL
)`

func InitDuckDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := db.Exec(progressSchema); err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}
	return db, nil
}

// Repository is the DuckDB progress backend. It satisfies the same contract
// as ProgressFile; the derived display fields are computed on read.
type Repository struct {
	db *sql.DB
}

func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, NewError(KindStorage, "open progress database", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Get(workID string) (*Progress, error) {
	var title string
	var next, total int
	err := r.db.QueryRow(
		`SELECT title, next_chapter, total_chapters FROM progress WHERE work_id = ?`, workID,
	).Scan(&title, &next, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewError(KindStorage, "get progress", err)
	}
	return NewProgress(workID, title, next, total), nil
}

func (r *Repository) Upsert(workID, title string, next, total int) error {
	_, err := r.db.Exec(`
		INSERT INTO progress (work_id, title, next_chapter, total_chapters)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (work_id) DO UPDATE SET
			title = excluded.title,
			next_chapter = excluded.next_chapter,
			total_chapters = excluded.total_chapters`,
		workID, title, next, total,
	)
	if err != nil {
		return NewError(KindStorage, "upsert progress", err)
	}
	slog.Info("progress updated", "work_id", workID, "title", title, "next_chapter", next)
	return nil
}

func (r *Repository) Delete(workID string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM progress WHERE work_id = ?`, workID)
	if err != nil {
		return false, NewError(KindStorage, "delete progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, NewError(KindStorage, "delete progress", err)
	}
	return n > 0, nil
}

func (r *Repository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM progress`); err != nil {
		return NewError(KindStorage, "clear progress", err)
	}
	return nil
}

func (r *Repository) List() ([]*Progress, error) {
	rows, err := r.db.Query(`SELECT work_id, title, next_chapter, total_chapters FROM progress ORDER BY work_id`)
	if err != nil {
		return nil, NewError(KindStorage, "list progress", err)
	}
	defer rows.Close()

	var out []*Progress
	for rows.Next() {
		var id, title string
		var next, total int
		if err := rows.Scan(&id, &title, &next, &total); err != nil {
			return nil, NewError(KindStorage, "list progress", err)
		}
		out = append(out, NewProgress(id, title, next, total))
	}
	if err := rows.Err(); err != nil {
		return nil, NewError(KindStorage, "list progress", err)
	}
	return out, nil
}
