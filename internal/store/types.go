package store

import "time"

// File is an indexed source file. Content is the text the occurrences were
// extracted from.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	Content     []byte
	LastIndexed time.Time
}

// Occurrence is one identifier token of a file, located by byte offsets.
type Occurrence struct {
	ID        int64
	FileID    int64
	Name      string
	Kind      string
	StartByte int
	EndByte   int
}
