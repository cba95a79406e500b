package ui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_Embedded(t *testing.T) {
	h := Handler("")

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "<!DOCTYPE html>"},
		{"/app.js", http.StatusOK, "/healthcheck"},
		{"/login", http.StatusOK, "<!DOCTYPE html>"},
		{"/some/deep/route", http.StatusOK, "<!DOCTYPE html>"},
		{"/missing.js", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %q", tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK && rec.Header().Get("Cache-Control") == "" {
				t.Error("Cache-Control not set")
			}
		})
	}
}

func TestHandler_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<!DOCTYPE html><p>built ui</p>`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.js"), []byte("console.log('ui')"), 0600); err != nil {
		t.Fatal(err)
	}

	h := Handler(dir)

	if rec := get(t, h, "/"); !strings.Contains(rec.Body.String(), "built ui") {
		t.Errorf("GET / = %q, want directory index", rec.Body.String())
	}
	if rec := get(t, h, "/main.js"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("GET /main.js = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/login"); !strings.Contains(rec.Body.String(), "built ui") {
		t.Errorf("GET /login fallback = %q, want directory index", rec.Body.String())
	}
	// The embedded page is not mixed in.
	if rec := get(t, h, "/app.js"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /app.js status = %d, want 404", rec.Code)
	}
}

func TestHandler_MissingDirectoryFallsBack(t *testing.T) {
	h := Handler(filepath.Join(t.TempDir(), "nope"))

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Valve Bridge") {
		t.Errorf("GET / = %d, want embedded page", rec.Code)
	}
}
