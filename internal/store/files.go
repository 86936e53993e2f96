package store

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var fileColumns = []string{"id", "path", "language", "hash", "content", "last_indexed"}

// InsertFile inserts a file row and sets f.ID.
func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := sq.Insert("files").
		Columns("path", "language", "hash", "content", "last_indexed").
		Values(f.Path, f.Language, f.Hash, f.Content, f.LastIndexed).
		RunWith(s.db).Exec()
	if err != nil {
		return 0, fmt.Errorf("insert file %s: %w", f.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the file stored at path, or nil when there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	row := sq.Select(fileColumns...).From("files").Where(sq.Eq{"path": path}).
		RunWith(s.db).QueryRow()
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}
	return f, nil
}

// FileByID returns the file with the given id, or nil when there is none.
func (s *Store) FileByID(id int64) (*File, error) {
	row := sq.Select(fileColumns...).From("files").Where(sq.Eq{"id": id}).
		RunWith(s.db).QueryRow()
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", id, err)
	}
	return f, nil
}

// Files returns every stored file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := sq.Select(fileColumns...).From("files").OrderBy("path").
		RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FilePaths returns the path to id mapping of every stored file.
func (s *Store) FilePaths() (map[string]int64, error) {
	rows, err := sq.Select("id", "path").From("files").RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("list file paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, err
		}
		out[path] = id
	}
	return out, rows.Err()
}

func scanFile(row sq.RowScanner) (*File, error) {
	var f File
	var hash sql.NullString
	var indexed sql.NullTime
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &hash, &f.Content, &indexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	if indexed.Valid {
		f.LastIndexed = indexed.Time
	}
	return &f, nil
}
