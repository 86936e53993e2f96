package syntax

import "sort"

// LineIndex converts between byte offsets and 0-based line/column pairs.
// Columns are byte columns, matching tree-sitter points.
type LineIndex struct {
	starts []uint32
	size   uint32
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text []byte) *LineIndex {
	li := &LineIndex{starts: []uint32{0}, size: uint32(len(text))}
	for i, b := range text {
		if b == '\n' {
			li.starts = append(li.starts, uint32(i+1))
		}
	}
	return li
}

// LineCol returns the 0-based line and column of off.
func (li *LineIndex) LineCol(off uint32) (line, col int) {
	i := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
	return i, int(off - li.starts[i])
}

// Offset returns the byte offset of a 0-based line and column. It reports
// false when the position lies outside the text.
func (li *LineIndex) Offset(line, col int) (uint32, bool) {
	if line < 0 || col < 0 || line >= len(li.starts) {
		return 0, false
	}
	off := li.starts[line] + uint32(col)
	end := li.size
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}
	if off > end {
		return 0, false
	}
	return off, true
}
