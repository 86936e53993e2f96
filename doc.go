// Package refscope finds references in Rust code. Given a cursor position
// it resolves the name there to its definition and returns the
// declaration together with every usage, each classified as a plain use or
// a struct literal and, for locals and fields, as a read or a write.
//
// # Pipeline
//
// Refscope operates in two phases:
//
//  1. Index: For each Rust file, run the Risor extraction script, which
//     parses the file with tree-sitter and records every identifier token
//     in SQLite together with the file's content.
//
//  2. Query: Build an immutable snapshot of the indexed files (module
//     tree, name resolution, macro expansion) and search it. Candidate
//     offsets come from the occurrence index and are verified against the
//     syntax tree.
//
// # Usage
//
//	e, err := refscope.New(".refscope/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/crate")
//
//	q, err := e.Query(ctx)
//	set, err := q.ReferencesAt(ctx, "src/lib.rs", 10, 5)
//	locs, err := q.DefinitionAt(ctx, "src/main.rs", 3, 12)
//
// # Incremental Indexing
//
// [Engine.IndexFiles] detects unchanged files via content hashing and skips
// them. [Engine.Snapshot] re-indexes files edited since the last index and
// reuses the parse trees of unchanged files.
//
// # Scripts
//
// Extraction logic lives in scripts/extract/rust.risor, embedded into the
// binary. [WithScriptsDir] loads scripts from disk instead; a change to the
// scripts forces a full re-extraction.
package refscope
