package valve

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nerrad567/valve-bridge/internal/infrastructure/database"
	"github.com/nerrad567/valve-bridge/migrations"
)

func sampleValves() []Valve {
	return []Valve{
		{ID: 1},
		{ID: 2, Attributes: map[string]json.RawMessage{"name": json.RawMessage(`"garden"`)}},
		{ID: 3},
	}
}

// openTestDB opens an in-memory database with migrations applied.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestStores_RoundTrip(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "db", "valves.json"))
		},
		"sqlite": func(t *testing.T) Store {
			return NewSQLiteStore(openTestDB(t).DB)
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			if err := s.Save(ctx, sampleValves()); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, sampleValves()) {
				t.Errorf("Load() = %+v, want %+v", got, sampleValves())
			}

			// Save is a full rewrite, not an append.
			if err := s.Save(ctx, []Valve{{ID: 1}}); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}
			got, err = s.Load(ctx)
			if err != nil {
				t.Fatalf("second Load() error = %v", err)
			}
			if len(got) != 1 {
				t.Errorf("Load() after rewrite returned %d valves, want 1", len(got))
			}
		})
	}
}

func TestFileStore_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valves.json")
	if err := os.WriteFile(path, []byte(`[{"id":1},{"id":2}]`), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Valve{{ID: 1}, {ID: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestFileStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := NewFileStore(filepath.Join(dir, "absent.json")).Load(context.Background()); err == nil {
			t.Error("Load() expected error for missing file")
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		if err := os.WriteFile(path, []byte(`[{"id":`), 0600); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
		if _, err := NewFileStore(path).Load(context.Background()); err == nil {
			t.Error("Load() expected error for corrupt file")
		}
	})
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "valves.json"))

	for i := 0; i < 3; i++ {
		if err := s.Save(context.Background(), sampleValves()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "valves.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want [valves.json]", names)
	}
}
