package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/refscope/internal/store"
)

// insert_occurrence({file_id, name, kind, start_byte, end_byte}) → id
func makeInsertOccurrenceFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_occurrence", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_occurrence", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_occurrence: %v", err)
		}

		occ := &store.Occurrence{
			FileID:    getInt64(m, "file_id"),
			Name:      getString(m, "name"),
			Kind:      getStringDefault(m, "kind", "identifier"),
			StartByte: getInt(m, "start_byte"),
			EndByte:   getInt(m, "end_byte"),
		}
		if occ.Name == "" {
			return object.Errorf("insert_occurrence: name is required")
		}
		if occ.EndByte < occ.StartByte {
			return object.Errorf("insert_occurrence: %q ends before it starts", occ.Name)
		}

		id, insertErr := s.InsertOccurrence(occ)
		if insertErr != nil {
			return object.Errorf("insert_occurrence: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getInt(m map[string]object.Object, key string) int {
	return int(getInt64(m, key))
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}
