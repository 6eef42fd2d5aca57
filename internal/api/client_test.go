package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/justyntemme/jianyue/pkg/models"
)

const manifest = `[
	{"slug": "moby-dick", "title": "Moby Dick", "author": "Herman Melville", "file": "Moby Dick.epub"},
	{"title": "Le Petit Prince", "file": "petit.epub"},
	{"file": "notes/field-notes.epub"},
	{"slug": "moby-dick", "title": "Duplicate", "file": "other.epub"}
]`

func TestFetchManifest_HTTP(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/epubs/index.json" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("_")
		w.Write([]byte(manifest))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/epubs/", zaptest.NewLogger(t))
	books, err := c.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest: %v", err)
	}
	if gotQuery == "" {
		t.Error("expected cache-busting query parameter")
	}

	want := []string{"moby-dick", "le-petit-prince", "field-notes"}
	if len(books) != len(want) {
		t.Fatalf("expected %d books, got %d: %+v", len(want), len(books), books)
	}
	for i, s := range want {
		if books[i].Slug != s {
			t.Errorf("book %d: expected slug %q, got %q", i, s, books[i].Slug)
		}
	}
	if books[0].Title != "Moby Dick" {
		t.Errorf("first entry should win, got %q", books[0].Title)
	}
}

func TestFetchManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		want    int
	}{
		{"empty list", http.StatusOK, "[]", false, 0},
		{"not found", http.StatusNotFound, "missing", true, 0},
		{"malformed", http.StatusOK, "{not json", true, 0},
		{"object instead of array", http.StatusOK, `{"books": []}`, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			books, err := NewClient(srv.URL, nil).FetchManifest(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ErrManifest) {
					t.Errorf("expected ErrManifest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(books) != tt.want {
				t.Errorf("expected %d books, got %d", tt.want, len(books))
			}
		})
	}
}

func TestClient_LocalLibrary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Moby Dick.epub"), []byte("PK-data"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewClient(dir, nil)
	books, err := c.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest: %v", err)
	}
	b, ok := models.FindBook(books, "moby-dick")
	if !ok {
		t.Fatal("expected moby-dick in manifest")
	}

	loc := c.DocumentURL(b)
	if !strings.HasSuffix(loc, "/Moby%20Dick.epub") {
		t.Errorf("expected percent-encoded file name, got %q", loc)
	}
	data, err := c.FetchBook(context.Background(), loc)
	if err != nil {
		t.Fatalf("FetchBook: %v", err)
	}
	if string(data) != "PK-data" {
		t.Errorf("unexpected book contents %q", data)
	}

	if _, err := NewClient(t.TempDir(), nil).FetchManifest(context.Background()); !errors.Is(err, ErrManifest) {
		t.Errorf("missing index.json: expected ErrManifest, got %v", err)
	}
}

func TestFetchBook_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Moby Dick.epub" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("book"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	data, err := c.FetchBook(context.Background(), c.DocumentURL(models.BookRef{File: "Moby Dick.epub"}))
	if err != nil {
		t.Fatalf("FetchBook: %v", err)
	}
	if string(data) != "book" {
		t.Errorf("expected book, got %q", data)
	}
	if _, err := c.FetchBook(context.Background(), c.DocumentURL(models.BookRef{File: "missing.epub"})); err == nil {
		t.Error("expected error for missing book")
	}
}
