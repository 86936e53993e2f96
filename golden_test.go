package refscope

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Definitions []goldenDef   `json:"definitions,omitempty"`
	References  []goldenQuery `json:"references,omitempty"`
}

type goldenDef struct {
	From goldenLoc `json:"from"`
	To   goldenLoc `json:"to"`
}

type goldenLoc struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

type goldenQuery struct {
	At     goldenLoc   `json:"at"`
	Name   string      `json:"name"`
	Kind   string      `json:"kind"`
	Access string      `json:"access,omitempty"`
	Refs   []goldenRef `json:"refs"`
}

type goldenRef struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
	Kind   string `json:"kind"`
	Access string `json:"access,omitempty"`
}

// TestGolden walks testdata/{language}/{level}/ directories and checks the
// definitions and references each golden.json expects for its src/ tree.
func TestGolden(t *testing.T) {
	langDirs, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, langDir := range langDirs {
		if !langDir.IsDir() {
			continue
		}
		lang := langDir.Name()
		langRoot := filepath.Join("testdata", lang)
		levels, err := os.ReadDir(langRoot)
		if err != nil {
			continue
		}

		for _, level := range levels {
			if !level.IsDir() {
				continue
			}
			testDir := filepath.Join(langRoot, level.Name())
			goldenPath := filepath.Join(testDir, "golden.json")
			srcDir := filepath.Join(testDir, "src")

			if _, err := os.Stat(goldenPath); err != nil {
				continue
			}
			if _, err := os.Stat(srcDir); err != nil {
				continue
			}

			t.Run(lang+"/"+level.Name(), func(t *testing.T) {
				runGoldenTest(t, srcDir, goldenPath)
			})
		}
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	dbPath := filepath.Join(t.TempDir(), "golden.db")
	engine, err := New(dbPath)
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	require.NoError(t, engine.IndexDirectory(ctx, srcDir))
	q, err := engine.Query(ctx)
	require.NoError(t, err)

	if len(golden.Definitions) > 0 {
		t.Run("definitions", func(t *testing.T) {
			verifyDefinitions(t, q, srcDir, golden.Definitions)
		})
	}
	if len(golden.References) > 0 {
		t.Run("references", func(t *testing.T) {
			verifyReferences(t, q, srcDir, golden.References)
		})
	}
}

func verifyDefinitions(t *testing.T, q *QueryBuilder, srcDir string, expected []goldenDef) {
	t.Helper()
	for _, exp := range expected {
		locs, err := q.DefinitionAt(context.Background(), filepath.Join(srcDir, exp.From.File), exp.From.Line, exp.From.Col)
		require.NoError(t, err, "definition from %+v", exp.From)

		found := false
		for _, loc := range locs {
			if filepath.Base(loc.File) == exp.To.File && loc.StartLine == exp.To.Line && loc.StartCol == exp.To.Col {
				found = true
				break
			}
		}
		assert.True(t, found, "definition from %+v should be %+v, got %+v", exp.From, exp.To, locs)
	}
}

func verifyReferences(t *testing.T, q *QueryBuilder, srcDir string, expected []goldenQuery) {
	t.Helper()
	for _, exp := range expected {
		set, err := q.ReferencesAt(context.Background(), filepath.Join(srcDir, exp.At.File), exp.At.Line, exp.At.Col)
		require.NoError(t, err)
		if !assert.NotNil(t, set, "no result at %+v", exp.At) {
			continue
		}

		assert.Equal(t, exp.Name, set.Declaration.Name)
		assert.Equal(t, exp.Kind, set.Declaration.Kind)
		assert.Equal(t, exp.Access, set.Declaration.Access, "declaration access at %+v", exp.At)

		actual := make([]goldenRef, 0, len(set.References))
		for _, r := range set.References {
			actual = append(actual, goldenRef{
				File:   filepath.Base(r.File),
				Line:   r.StartLine,
				Col:    r.StartCol,
				Kind:   r.Kind,
				Access: r.Access,
			})
		}
		assert.ElementsMatch(t, exp.Refs, actual, "references at %+v", exp.At)
	}
}
