package store

import "sync"

// BatchedStore buffers extraction inserts in memory using fake (negative)
// IDs. It implements DataStore so extraction scripts can write to it
// without knowing whether they're hitting SQLite or an in-memory buffer.
//
// The mutex protects fake ID allocation and slice appends. Reads see only
// the buffered occurrences, since the file being extracted has no committed
// rows yet.
type BatchedStore struct {
	mu sync.Mutex

	Occurrences []Occurrence

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertOccurrence(occ *Occurrence) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	occ.ID = b.allocFakeID()
	b.Occurrences = append(b.Occurrences, *occ)
	return occ.ID, nil
}

func (b *BatchedStore) OccurrencesByFile(fileID int64) ([]*Occurrence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Occurrence
	for i := range b.Occurrences {
		if b.Occurrences[i].FileID == fileID {
			o := b.Occurrences[i]
			out = append(out, &o)
		}
	}
	return out, nil
}
