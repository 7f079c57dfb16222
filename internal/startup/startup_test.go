package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video-compressor/internal/intake"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	// Verify that runtime values are correct
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
			setEnv:       false,
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
		{
			name:         "Returns empty string when env var is empty",
			key:          "TEST_EMPTY_VAR",
			defaultValue: "default",
			envValue:     "",
			want:         "",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				// Ensure the variable is not set
				os.Unsetenv(tt.key)
				t.Cleanup(func() {
					os.Unsetenv(tt.key)
				})
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestReadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "METRICS_PORT", "METRICS_ENABLED", "WORK_DIR", "FFMPEG_PATH",
		"STATIC_DIR", "MAX_UPLOAD_SIZE", "SESSION_TTL", "MAX_SESSIONS", "ENCODE_THREADS",
	} {
		t.Setenv(key, "")
	}

	config := readConfig()

	if config.Port != DefaultPort || config.MetricsPort != DefaultMetricsPort {
		t.Errorf("ports = %s/%s", config.Port, config.MetricsPort)
	}
	if !config.MetricsEnabled {
		t.Error("metrics should be enabled by default")
	}
	if config.WorkDir != DefaultWorkDir || config.FFmpegPath != DefaultFFmpegPath {
		t.Errorf("work dir %q, ffmpeg %q", config.WorkDir, config.FFmpegPath)
	}
	if config.MaxUploadSize != intake.DefaultMaxSize {
		t.Errorf("MaxUploadSize = %d, want %d", config.MaxUploadSize, intake.DefaultMaxSize)
	}
	if config.SessionTTL != DefaultSessionTTL || config.MaxSessions != DefaultMaxSessions {
		t.Errorf("ttl %v, max sessions %d", config.SessionTTL, config.MaxSessions)
	}
	if config.EncodeThreads != DefaultEncodeThreads {
		t.Errorf("EncodeThreads = %d", config.EncodeThreads)
	}
	if config.EncodeSlots < 1 {
		t.Errorf("EncodeSlots = %d, want at least 1", config.EncodeSlots)
	}
}

func TestReadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("MAX_UPLOAD_SIZE", "256MiB")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("MAX_SESSIONS", "2")
	t.Setenv("ENCODE_THREADS", "8")
	t.Setenv("COMPRESS_WORKERS", "3")

	config := readConfig()

	if config.Port != "3000" {
		t.Errorf("Port = %s", config.Port)
	}
	if config.MetricsEnabled {
		t.Error("MetricsEnabled should be false")
	}
	if config.MaxUploadSize != 256<<20 {
		t.Errorf("MaxUploadSize = %d", config.MaxUploadSize)
	}
	if config.SessionTTL != 10*time.Minute {
		t.Errorf("SessionTTL = %v", config.SessionTTL)
	}
	if config.MaxSessions != 2 || config.EncodeThreads != 8 || config.EncodeSlots != 3 {
		t.Errorf("sessions %d, threads %d, slots %d", config.MaxSessions, config.EncodeThreads, config.EncodeSlots)
	}
}

func TestLoadConfigCreatesWorkDir(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "nested", "work")
	t.Setenv("WORK_DIR", workDir)
	t.Setenv("STATIC_DIR", t.TempDir())

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.WorkDir != workDir {
		t.Errorf("WorkDir = %q, want %q", config.WorkDir, workDir)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		t.Errorf("work directory not created: %v", err)
	}
}

func TestLoadConfigRejectsFileAsWorkDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORK_DIR", file)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error when WORK_DIR is a file")
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}

	r := mux.NewRouter()
	r.HandleFunc("/health", noop).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", noop).Methods("GET", "DELETE")
	r.PathPrefix("/").Handler(http.NotFoundHandler())

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}

	seen := make(map[string]bool)
	for _, route := range routes {
		seen[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{"GET /health", "GET /api/session", "DELETE /api/session", "* /"} {
		if !seen[want] {
			t.Errorf("missing route %q in %v", want, routes)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/health":                   "health",
		"/api/session":              "api/session",
		"/api/session/media/{kind}": "api/session",
		"/api/qualities":            "api/qualities",
		"/":                         "",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}
