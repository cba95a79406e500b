package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/valve-bridge/internal/auth"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/config"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/valve-bridge/internal/ui"
	"github.com/nerrad567/valve-bridge/internal/valve"
)

const (
	testUsername = "admin"
	testPassword = "s3cret"
)

// testEnv bundles a server with the real registry and sessions behind it.
type testEnv struct {
	srv      *Server
	handler  http.Handler
	valves   *valve.Registry
	sessions *auth.Sessions
}

// newTestEnv builds a server over a file-backed registry holding count
// valves and a users file with one account. mutate may adjust the deps.
func newTestEnv(t *testing.T, count int, mutate func(*Deps)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	usersFile := filepath.Join(dir, "users.json")
	users := `[{"username": "` + testUsername + `", "password": "` + testPassword + `"}]`
	if err := os.WriteFile(usersFile, []byte(users), 0600); err != nil {
		t.Fatalf("writing users file: %v", err)
	}
	sessions, err := auth.NewSessions(auth.Config{UsersFile: usersFile})
	if err != nil {
		t.Fatalf("NewSessions() error = %v", err)
	}

	registry := valve.NewRegistry(valve.NewFileStore(filepath.Join(dir, "valves.json")))
	for range count {
		registry.Create(context.Background())
	}

	deps := Deps{
		Config: config.HTTPConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.HTTPTimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:   logging.Discard(),
		Sessions: sessions,
		Valves:   registry,
		Version:  "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), valves: registry, sessions: sessions}
}

// do sends a request through the router and returns the recorder.
func (e *testEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// login performs a successful login and returns the token.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/login", `{"username":"`+testUsername+`","password":"`+testPassword+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
}

func TestNew_RequiredDeps(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"no logger", func(d *Deps) { d.Logger = nil }},
		{"no sessions", func(d *Deps) { d.Sessions = nil }},
		{"no valves", func(d *Deps) { d.Valves = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{Logger: logging.Discard(), Sessions: env.sessions, Valves: env.valves}
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestServer_StartClose(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	if env.srv.Addr() != nil {
		t.Error("Addr() before Start should be nil")
	}
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := env.srv.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want error")
	}

	resp, err := http.Get("http://" + env.srv.Addr().String() + "/healthcheck")
	if err != nil {
		t.Fatalf("GET /healthcheck: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServer_CloseBeforeStart(t *testing.T) {
	env := newTestEnv(t, 0, nil)
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	rec := env.do(http.MethodGet, "/healthcheck", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	rec = env.do(http.MethodGet, "/healthcheck", "", http.Header{"X-Request-Id": []string{"abc-123"}})
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestMiddleware_CORS(t *testing.T) {
	env := newTestEnv(t, 0, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"http://panel.local"}
	})

	rec := env.do(http.MethodOptions, "/login", "", http.Header{"Origin": []string{"http://panel.local"}})
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	rec = env.do(http.MethodGet, "/healthcheck", "", http.Header{"Origin": []string{"http://evil.local"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unlisted origin = %q, want empty", got)
	}
}

func TestMiddleware_Recovery(t *testing.T) {
	env := newTestEnv(t, 0, func(d *Deps) {
		d.Metrics = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})
	})

	rec := env.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"abc", "abc"},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := tokenFromRequest(req); got != tt.want {
			t.Errorf("tokenFromRequest(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestUIRoutes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>valves</h1>"), 0600); err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, 0, func(d *Deps) { d.UI = ui.Handler(dir) })

	rec := env.do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "valves") {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}

	// API routes still win over the catch-all.
	rec = env.do(http.MethodGet, "/healthcheck", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "isLoggedIn") {
		t.Errorf("GET /healthcheck = %d %q", rec.Code, rec.Body.String())
	}
}
