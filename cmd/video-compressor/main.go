package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-compressor/internal/compressor"
	"video-compressor/internal/engine"
	"video-compressor/internal/handlers"
	"video-compressor/internal/logging"
	"video-compressor/internal/memory"
	"video-compressor/internal/metrics"
	"video-compressor/internal/middleware"
	"video-compressor/internal/preview"
	"video-compressor/internal/session"
	"video-compressor/internal/startup"
	"video-compressor/internal/workers"

	"github.com/gorilla/mux"
)

const (
	collectorInterval = 15 * time.Second
	probeTimeout      = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	startup.LogEngineInit(config)
	startup.LogSessionInit(config)

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	slots := workers.NewPool(config.EncodeSlots)
	registry := session.New(session.Config{
		TTL:         config.SessionTTL,
		MaxSessions: config.MaxSessions,
		New:         newSessionFactory(config, slots),
	})
	registry.Start()

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	collector := metrics.NewCollector(registry, collectorInterval)
	collector.Start()

	h := handlers.New(handlers.Options{
		Sessions: registry,
		Previews: preview.NewGenerator(preview.Config{
			FFmpegPath: config.FFmpegPath,
			TempDir:    config.WorkDir,
			Slots:      slots,
		}),
		Memory:          monitor,
		MaxUploadSize:   config.MaxUploadSize,
		SessionTTL:      config.SessionTTL,
		EngineAvailable: config.FFmpegAvailable,
	})

	router := setupRouter(h, config.StaticDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggingConfig.SessionCookie = handlers.SessionCookieName
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply compression middleware
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := newServer(":"+config.Port, handler)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(":"+config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, registry, monitor, collector)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// newSessionFactory builds sessions that encode with ffmpeg inside
// per-session workspaces under the configured work directory.
func newSessionFactory(config *startup.Config, slots *workers.Pool) session.Factory {
	return func(id string) *compressor.Session {
		log := logging.Scoped("session", shortID(id))
		return compressor.New(compressor.Config{
			Engine: engine.FFmpegFactory(log),
			Load: engine.LoadConfig{
				Binary:       config.FFmpegPath,
				WorkDir:      config.WorkDir,
				ProbeTimeout: probeTimeout,
			},
			Threads: config.EncodeThreads,
			Slots:   slots,
			Log:     log,
		})
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	h.RegisterRoutes(r)

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

func newServer(addr string, handler http.Handler) *http.Server {
	// No read or write timeout: uploads and downloads are bounded by
	// size, not time.
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(addr string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	metricsMux.HandleFunc("/health", h.LivenessCheck)

	return &http.Server{
		Addr:         addr,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, registry *session.Registry, monitor *memory.Monitor, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing sessions")
	registry.Stop()
	startup.LogShutdownStepComplete("Sessions closed, engines terminated")

	collector.Stop()
	monitor.Stop()

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
