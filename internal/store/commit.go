package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// CommitBatch inserts all buffered occurrences from a BatchedStore within a
// single transaction. Fake (negative) IDs are replaced by the real IDs
// SQLite assigns.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	query, _, err := sq.Insert("occurrences").
		Columns("file_id", "name", "kind", "start_byte", "end_byte").
		Values(0, "", "", 0, 0).ToSql()
	if err != nil {
		return fmt.Errorf("commit batch: build insert: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("commit batch: prepare: %w", err)
	}
	defer stmt.Close()

	for i := range batch.Occurrences {
		occ := &batch.Occurrences[i]
		res, err := stmt.Exec(occ.FileID, occ.Name, occ.Kind, occ.StartByte, occ.EndByte)
		if err != nil {
			return fmt.Errorf("commit batch: occurrence %q: %w", occ.Name, err)
		}
		if occ.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit batch: occurrence %q: %w", occ.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}
