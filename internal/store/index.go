package store

import (
	"context"

	"github.com/jward/refscope/internal/syntax"
)

// maxFilesPerQuery bounds the IN list of one occurrence lookup.
const maxFilesPerQuery = 500

// Index serves usage-search candidates from the occurrences table.
type Index struct {
	store *Store
}

// NewIndex returns a candidate index backed by s.
func NewIndex(s *Store) *Index {
	return &Index{store: s}
}

func (ix *Index) Occurrences(ctx context.Context, name string, files []syntax.FileID) (map[syntax.FileID][]uint32, error) {
	out := make(map[syntax.FileID][]uint32)
	if name == "" {
		return out, nil
	}
	for start := 0; start < len(files); start += maxFilesPerQuery {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+maxFilesPerQuery, len(files))
		ids := make([]int64, 0, end-start)
		for _, f := range files[start:end] {
			ids = append(ids, int64(f))
		}
		occs, err := ix.store.OccurrencesByName(name, ids)
		if err != nil {
			return nil, err
		}
		for _, o := range occs {
			id := syntax.FileID(o.FileID)
			out[id] = append(out[id], uint32(o.StartByte))
		}
	}
	return out, nil
}
