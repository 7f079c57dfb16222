// Package preview extracts still frames from in-memory videos so the
// original and compressed files can be compared side by side at the same
// timestamp.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // ffmpeg frames are piped as PNG
	"math"
	"os"
	"os/exec"
	"strconv"
	"time"

	"video-compressor/internal/logging"
	"video-compressor/internal/metrics"
	"video-compressor/internal/workers"

	"github.com/disintegration/imaging"
)

const (
	DefaultWidth = 640
	MaxWidth     = 1920
	jpegQuality  = 80
)

// ErrUnavailable reports that ffmpeg could not be found.
var ErrUnavailable = errors.New("preview unavailable: ffmpeg not found")

// Config configures a Generator.
type Config struct {
	// FFmpegPath is the encoder binary (default "ffmpeg").
	FFmpegPath string
	// TempDir holds the short-lived copies ffmpeg reads from (default os.TempDir()).
	TempDir string
	// Timeout bounds a single extraction (default 20s).
	Timeout time.Duration
	// Slots bounds concurrent extractions; nil means unbounded.
	Slots *workers.Pool
}

// Generator renders JPEG stills from video bytes.
type Generator struct {
	cfg Config
}

// NewGenerator returns a Generator with defaults applied.
func NewGenerator(cfg Config) *Generator {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Generator{cfg: cfg}
}

// Frame returns a JPEG of the frame at offset in video, scaled to fit
// within width pixels. source only labels metrics.
func (g *Generator) Frame(ctx context.Context, source string, video []byte, at time.Duration, width int) ([]byte, error) {
	start := time.Now()
	data, err := g.frame(ctx, video, at, ClampWidth(width))
	metrics.PreviewFrameDuration.Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PreviewFramesTotal.WithLabelValues(source, status).Inc()
	return data, err
}

func (g *Generator) frame(ctx context.Context, video []byte, at time.Duration, width int) ([]byte, error) {
	if len(video) == 0 {
		return nil, errors.New("no video data")
	}

	ffmpegPath, err := exec.LookPath(g.cfg.FFmpegPath)
	if err != nil {
		return nil, ErrUnavailable
	}

	if g.cfg.Slots != nil {
		if err := g.cfg.Slots.Acquire(ctx); err != nil {
			return nil, err
		}
		defer g.cfg.Slots.Release()
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	input, err := os.CreateTemp(g.cfg.TempDir, "preview-*")
	if err != nil {
		return nil, fmt.Errorf("failed to stage video: %w", err)
	}
	defer os.Remove(input.Name())

	if _, err := input.Write(video); err != nil {
		input.Close()
		return nil, fmt.Errorf("failed to stage video: %w", err)
	}
	if err := input.Close(); err != nil {
		return nil, fmt.Errorf("failed to stage video: %w", err)
	}

	img, err := extract(ctx, ffmpegPath, input.Name(), at)
	if err != nil && at > 0 {
		// Seeking past the end yields no frame; fall back to the first one.
		logging.Debug("Frame at %v failed, retrying at start: %v", at, err)
		img, err = extract(ctx, ffmpegPath, input.Name(), 0)
	}
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, width, width, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func extract(ctx context.Context, ffmpegPath, file string, at time.Duration) (image.Image, error) {
	var args []string
	if at > 0 {
		args = append(args, "-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64))
	}
	args = append(args,
		"-i", file,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, lastLine(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %v", at)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// ClampWidth maps a requested width onto (0, MaxWidth]; non-positive
// values select DefaultWidth.
func ClampWidth(width int) int {
	switch {
	case width <= 0:
		return DefaultWidth
	case width > MaxWidth:
		return MaxWidth
	default:
		return width
	}
}

// ParseOffset parses a "t" query value in seconds ("12", "3.5").
func ParseOffset(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func lastLine(b []byte) string {
	b = bytes.TrimRight(b, "\r\n")
	if i := bytes.LastIndexAny(b, "\r\n"); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}
