package refscope

import (
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/internal/syntax"
)

// Public type aliases for internal store types. These are Go type aliases
// (=), identical to the internal types at compile time.

type Store = store.Store
type File = store.File
type Occurrence = store.Occurrence

// fileID converts a store file id to the snapshot file id. They are the
// same number.
func fileID(id int64) syntax.FileID { return syntax.FileID(id) }
