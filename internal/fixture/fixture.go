// Package fixture parses the multi-file test markup used across refscope's
// tests:
//
//	//- /lib.rs
//	mod foo;
//	//- /foo.rs
//	pub struct Foo<|> {}
//
// Text without a "//- " header is a single file named /main.rs. The cursor
// marker "<|>" is removed and its offset recorded.
package fixture

import (
	"fmt"
	"strings"

	"github.com/jward/refscope/internal/syntax"
)

// CursorMarker marks the cursor position inside fixture text.
const CursorMarker = "<|>"

const fileHeader = "//- "

// File is one file of a fixture, with the cursor marker removed.
type File struct {
	Path string
	Text string
}

// Position is the cursor location.
type Position struct {
	Path   string
	Offset uint32
}

// Fixture is a parsed set of files and an optional cursor.
type Fixture struct {
	Files  []File
	Cursor *Position
}

// Parse splits fixture text into files.
func Parse(text string) Fixture {
	text = trimIndent(text)
	var f Fixture
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), fileHeader) {
		f.add("/main.rs", text)
		return f
	}

	var (
		path string
		body strings.Builder
		open bool
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, fileHeader) {
			if open {
				f.add(path, body.String())
			}
			path = strings.TrimSpace(strings.TrimPrefix(line, fileHeader))
			body.Reset()
			open = true
			continue
		}
		if open {
			body.WriteString(line)
		}
	}
	if open {
		f.add(path, body.String())
	}
	return f
}

func (f *Fixture) add(path, text string) {
	if i := strings.Index(text, CursorMarker); i >= 0 {
		if f.Cursor != nil {
			panic(fmt.Sprintf("fixture: second cursor in %s", path))
		}
		text = text[:i] + text[i+len(CursorMarker):]
		if strings.Contains(text, CursorMarker) {
			panic(fmt.Sprintf("fixture: second cursor in %s", path))
		}
		f.Cursor = &Position{Path: path, Offset: uint32(i)}
	}
	f.Files = append(f.Files, File{Path: path, Text: text})
}

// File returns the file at path.
func (f Fixture) File(path string) File {
	for _, file := range f.Files {
		if file.Path == path {
			return file
		}
	}
	panic(fmt.Sprintf("fixture: no file %s", path))
}

// Range returns the range of the nth (0-based) occurrence of needle in the
// file at path.
func (f Fixture) Range(path, needle string, nth int) syntax.TextRange {
	text := f.File(path).Text
	start := 0
	for i := 0; ; i++ {
		j := strings.Index(text[start:], needle)
		if j < 0 {
			panic(fmt.Sprintf("fixture: %q occurrence %d not found in %s", needle, nth, path))
		}
		if i == nth {
			s := uint32(start + j)
			return syntax.TextRange{Start: s, End: s + uint32(len(needle))}
		}
		start += j + len(needle)
	}
}

// Sub returns the range of needle inside the nth occurrence of outer.
func (f Fixture) Sub(path, outer string, nth int, needle string) syntax.TextRange {
	r := f.Range(path, outer, nth)
	j := strings.Index(outer, needle)
	if j < 0 {
		panic(fmt.Sprintf("fixture: %q not inside %q", needle, outer))
	}
	s := r.Start + uint32(j)
	return syntax.TextRange{Start: s, End: s + uint32(len(needle))}
}

// trimIndent removes the indentation common to all non-blank lines and a
// single leading newline.
func trimIndent(text string) string {
	text = strings.TrimPrefix(text, "\n")
	lines := strings.Split(text, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return text
	}
	for i, l := range lines {
		if len(l) >= indent {
			lines[i] = l[indent:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
