package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var occurrenceColumns = []string{"id", "file_id", "name", "kind", "start_byte", "end_byte"}

// InsertOccurrence inserts an occurrence row and sets occ.ID.
func (s *Store) InsertOccurrence(occ *Occurrence) (int64, error) {
	return insertOccurrence(s.db, occ)
}

func insertOccurrence(runner sq.BaseRunner, occ *Occurrence) (int64, error) {
	res, err := sq.Insert("occurrences").
		Columns("file_id", "name", "kind", "start_byte", "end_byte").
		Values(occ.FileID, occ.Name, occ.Kind, occ.StartByte, occ.EndByte).
		RunWith(runner).Exec()
	if err != nil {
		return 0, fmt.Errorf("insert occurrence %q: %w", occ.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	occ.ID = id
	return id, nil
}

// OccurrencesByFile returns the occurrences of a file in offset order.
func (s *Store) OccurrencesByFile(fileID int64) ([]*Occurrence, error) {
	return s.queryOccurrences(sq.Eq{"file_id": fileID})
}

// OccurrencesByName returns the occurrences of name within fileIDs, ordered
// by file and offset. An empty fileIDs searches every file.
func (s *Store) OccurrencesByName(name string, fileIDs []int64) ([]*Occurrence, error) {
	where := sq.And{sq.Eq{"name": name}}
	if len(fileIDs) > 0 {
		where = append(where, sq.Eq{"file_id": fileIDs})
	}
	return s.queryOccurrences(where)
}

func (s *Store) queryOccurrences(where sq.Sqlizer) ([]*Occurrence, error) {
	rows, err := sq.Select(occurrenceColumns...).From("occurrences").
		Where(where).OrderBy("file_id", "start_byte").
		RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}
	defer rows.Close()

	var out []*Occurrence
	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.ID, &o.FileID, &o.Name, &o.Kind, &o.StartByte, &o.EndByte); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
