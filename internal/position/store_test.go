package position

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/justyntemme/jianyue/internal/storage"
)

func TestStore_SaveLoadClear(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "positions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	stores := map[string]*Store{
		"memory": NewStore(storage.NewMemory()),
		"sqlite": NewStore(db),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			if err := s.Save("moby-dick", "epubcfi(/6/4!/4/2)"); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := s.Save("moby-dick", "epubcfi(/6/8!/4/10)"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			id, ok, err := s.Load("moby-dick")
			if err != nil || !ok {
				t.Fatalf("Load: ok=%v err=%v", ok, err)
			}
			if id != "epubcfi(/6/8!/4/10)" {
				t.Errorf("expected latest id, got %q", id)
			}

			if err := s.Clear("moby-dick"); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if _, ok, _ := s.Load("moby-dick"); ok {
				t.Error("expected no position after clear")
			}
		})
	}
}

func TestStore_Isolation(t *testing.T) {
	s := NewStore(storage.NewMemory())
	_ = s.Save("a", "epubcfi(/6/2!/4/2)")
	_ = s.Save("b", "epubcfi(/6/6!/4/4)")
	_ = s.Clear("a")

	if _, ok, _ := s.Load("a"); ok {
		t.Error("expected a cleared")
	}
	if id, ok, _ := s.Load("b"); !ok || id != "epubcfi(/6/6!/4/4)" {
		t.Errorf("expected b untouched, got %q ok=%v", id, ok)
	}
}

func TestStore_InvalidInput(t *testing.T) {
	kv := storage.NewMemory()
	s := NewStore(kv)

	if err := s.Save("", "x"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := s.Save("book", ""); err != nil {
		t.Errorf("empty id should be ignored, got %v", err)
	}
	if _, ok, _ := kv.Get(Key("book")); ok {
		t.Error("empty id must not be stored")
	}
}
