package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-compressor/internal/handlers"
	"video-compressor/internal/session"
	"video-compressor/internal/startup"
	"video-compressor/internal/workers"
)

func newTestHandlers(t *testing.T) *handlers.Handlers {
	t.Helper()
	config := &startup.Config{
		FFmpegPath:    "ffmpeg",
		WorkDir:       t.TempDir(),
		EncodeThreads: 2,
	}
	registry := session.New(session.Config{New: newSessionFactory(config, workers.NewPool(1))})
	t.Cleanup(registry.Stop)
	return handlers.New(handlers.Options{Sessions: registry, EngineAvailable: true})
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0f8fad5b-d9cb-469f-a165-70867728950e", "0f8fad5b"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSessionFactory(t *testing.T) {
	config := &startup.Config{FFmpegPath: "ffmpeg", WorkDir: t.TempDir(), EncodeThreads: 2}
	factory := newSessionFactory(config, workers.NewPool(1))

	s := factory("0f8fad5b-d9cb-469f-a165-70867728950e")
	defer s.Close()

	if got := s.Snapshot().Stage.String(); got != "idle" {
		t.Errorf("new session stage = %q, want idle", got)
	}
}

func TestSetupRouter(t *testing.T) {
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>ui</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	router := setupRouter(newTestHandlers(t), static)

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/livez", http.StatusOK, "alive"},
		{"/readyz", http.StatusOK, "ready"},
		{"/version", http.StatusOK, "goVersion"},
		{"/api/qualities", http.StatusOK, "medium"},
		{"/api/session", http.StatusNotFound, ""},
		{"/", http.StatusOK, "ui"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.contains)
			}
		})
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer(":0", newTestHandlers(t))

	if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 {
		t.Errorf("metrics server timeouts = %v/%v, want positive", srv.ReadTimeout, srv.WriteTimeout)
	}

	for _, path := range []string{"/metrics", "/health"} {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}
	}
}

func TestServerTimeouts(t *testing.T) {
	srv := newServer(":0", http.NotFoundHandler())

	if srv.ReadHeaderTimeout <= 0 {
		t.Error("ReadHeaderTimeout should be positive")
	}
	if srv.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want 0 so long downloads are not cut off", srv.WriteTimeout)
	}
}
