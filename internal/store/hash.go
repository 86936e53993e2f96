package store

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// ContentHash returns the hex xxh3 hash of file content, used to skip
// unchanged files on reindex.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}
