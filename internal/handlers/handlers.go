package handlers

import (
	"time"

	"video-compressor/internal/intake"
	"video-compressor/internal/memory"
	"video-compressor/internal/preview"
	"video-compressor/internal/session"
	"video-compressor/internal/streaming"
)

// Options wires the handlers to the rest of the application.
type Options struct {
	Sessions *session.Registry
	Previews *preview.Generator
	// Memory, when set, refuses uploads while the process is under
	// memory pressure.
	Memory *memory.Monitor
	// MaxUploadSize bounds uploads (default intake.DefaultMaxSize).
	MaxUploadSize int64
	// SessionTTL sets the cookie lifetime.
	SessionTTL time.Duration
	// EngineAvailable reports whether the encoder passed its startup probe.
	EngineAvailable bool
}

// Handlers serves the compression API.
type Handlers struct {
	sessions        *session.Registry
	previews        *preview.Generator
	memory          *memory.Monitor
	maxUploadSize   int64
	sessionTTL      time.Duration
	engineAvailable bool
	startTime       time.Time
	downloadConfig  streaming.TimeoutWriterConfig
}

// New creates the handlers.
func New(opts Options) *Handlers {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = intake.DefaultMaxSize
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.Previews == nil {
		opts.Previews = preview.NewGenerator(preview.Config{})
	}

	return &Handlers{
		sessions:        opts.Sessions,
		previews:        opts.Previews,
		memory:          opts.Memory,
		maxUploadSize:   opts.MaxUploadSize,
		sessionTTL:      opts.SessionTTL,
		engineAvailable: opts.EngineAvailable,
		startTime:       time.Now(),
		downloadConfig:  streaming.DefaultTimeoutWriterConfig(),
	}
}
