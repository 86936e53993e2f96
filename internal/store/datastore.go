package store

// DataStore is the interface for extraction-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement this interface.
type DataStore interface {
	// InsertOccurrence returns the assigned ID.
	InsertOccurrence(occ *Occurrence) (int64, error)

	OccurrencesByFile(fileID int64) ([]*Occurrence, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
