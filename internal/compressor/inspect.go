package compressor

import (
	"strconv"
	"strings"
)

// LogSignal is what a LogInspector found in one engine log line.
type LogSignal struct {
	// OutputSize is the running output size in bytes, valid when HasSize.
	OutputSize int64
	HasSize    bool
	// Fatal marks an engine-side failure the exit status may not report.
	Fatal bool
}

// LogInspector extracts signals from unstructured engine log lines.
type LogInspector interface {
	Inspect(msg string) LogSignal
}

// MarkerInspector matches fixed substrings in log lines.
type MarkerInspector struct {
	// SizeKey prefixes the running output size, e.g. "total_size=".
	SizeKey string
	// FatalMarkers are matched case-insensitively anywhere in the line.
	FatalMarkers []string
}

// DefaultInspector returns the rules for ffmpeg diagnostics.
func DefaultInspector() MarkerInspector {
	return MarkerInspector{
		SizeKey: "total_size=",
		FatalMarkers: []string{
			"Aborted(",
			"out of memory",
			"Cannot allocate memory",
		},
	}
}

func (m MarkerInspector) Inspect(msg string) LogSignal {
	var sig LogSignal

	line := strings.TrimSpace(msg)
	if m.SizeKey != "" && strings.HasPrefix(line, m.SizeKey) {
		// "N/A" appears before the muxer has written anything.
		if n, err := strconv.ParseInt(strings.TrimSpace(line[len(m.SizeKey):]), 10, 64); err == nil && n >= 0 {
			sig.OutputSize = n
			sig.HasSize = true
		}
		return sig
	}

	lower := strings.ToLower(line)
	for _, marker := range m.FatalMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			sig.Fatal = true
			break
		}
	}
	return sig
}
