package search

import (
	"bytes"
	"context"

	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// OccurrenceIndex finds the candidate offsets of an identifier. Candidates
// may include false positives such as comments; they are verified against
// the syntax tree.
type OccurrenceIndex interface {
	Occurrences(ctx context.Context, name string, files []syntax.FileID) (map[syntax.FileID][]uint32, error)
}

// TextIndex scans snapshot text for whole-word matches.
type TextIndex struct {
	db *semdb.Snapshot
}

// NewTextIndex returns an index over the text of db.
func NewTextIndex(db *semdb.Snapshot) *TextIndex {
	return &TextIndex{db: db}
}

func (ix *TextIndex) Occurrences(ctx context.Context, name string, files []syntax.FileID) (map[syntax.FileID][]uint32, error) {
	out := make(map[syntax.FileID][]uint32)
	if name == "" {
		return out, nil
	}
	needle := []byte(name)
	for _, id := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, ok := ix.db.File(id)
		if !ok {
			continue
		}
		if offs := WordOffsets(f.Text, needle); len(offs) > 0 {
			out[id] = offs
		}
	}
	return out, nil
}

// WordOffsets returns the start of every occurrence of word in text that is
// not part of a longer identifier.
func WordOffsets(text, word []byte) []uint32 {
	var out []uint32
	for start := 0; ; {
		i := bytes.Index(text[start:], word)
		if i < 0 {
			return out
		}
		at := start + i
		end := at + len(word)
		if (at == 0 || !isIdentByte(text[at-1])) && (end == len(text) || !isIdentByte(text[end])) {
			out = append(out, uint32(at))
		}
		start = at + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}
