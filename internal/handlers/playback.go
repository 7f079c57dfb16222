package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"video-compressor/internal/compressor"
	"video-compressor/internal/logging"
	"video-compressor/internal/mediatypes"
	"video-compressor/internal/preview"
	"video-compressor/internal/streaming"

	"github.com/gorilla/mux"
)

const (
	sourceOriginal   = "original"
	sourceCompressed = "compressed"
)

// playable is one byte source the comparison player can load.
type playable struct {
	name        string
	contentType string
	data        []byte
}

// resolveSource returns the bytes behind an original/compressed reference.
// A "rev" query value from a discarded result is rejected with 410 so the
// player drops stale references.
func resolveSource(w http.ResponseWriter, r *http.Request, s *compressor.Session) (playable, bool) {
	if raw := r.URL.Query().Get("rev"); raw != "" {
		rev, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || rev != s.PlaybackRevision() {
			writeJSONError(w, "Playback reference revoked", http.StatusGone)
			return playable{}, false
		}
	}

	input, ok := s.Input()
	if !ok {
		writeJSONError(w, "No video submitted", http.StatusNotFound)
		return playable{}, false
	}

	switch mux.Vars(r)["source"] {
	case sourceOriginal:
		return playable{
			name:        input.Name,
			contentType: mediatypes.GetMimeType(filepath.Ext(input.Name)),
			data:        input.Data,
		}, true
	case sourceCompressed:
		out, ok := s.Output()
		if !ok {
			writeJSONError(w, "Compressed video not available", http.StatusNotFound)
			return playable{}, false
		}
		return playable{
			name:        compressor.OutputName(input.Name),
			contentType: mediatypes.CompressedMimeType,
			data:        out,
		}, true
	default:
		writeJSONError(w, "Unknown source", http.StatusNotFound)
		return playable{}, false
	}
}

// ServeMedia serves the original or compressed video with range support
// for the comparison player.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.withSession(w, r)
	if !ok {
		return
	}
	src, ok := resolveSource(w, r, s)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", src.contentType)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("ETag", fmt.Sprintf(`"%s-%d-%s"`, id[:8], s.PlaybackRevision(), mux.Vars(r)["source"]))
	http.ServeContent(w, r, src.name, time.Time{}, bytes.NewReader(src.data))
}

// Download sends the compressed video as an attachment named after the
// original file.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}

	input, hasInput := s.Input()
	out, hasOutput := s.Output()
	if !hasInput || !hasOutput {
		writeJSONError(w, "Compressed video not available", http.StatusNotFound)
		return
	}

	name := compressor.OutputName(input.Name)
	w.Header().Set("Content-Type", mediatypes.CompressedMimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Cache-Control", "no-store")

	err := streaming.StreamWithTimeout(r.Context(), w, bytes.NewReader(out), int64(len(out)), h.downloadConfig)
	switch {
	case err == nil:
	case errors.Is(err, streaming.ErrClientGone), errors.Is(err, streaming.ErrStreamCanceled):
		logging.Debug("download of %s abandoned by client: %v", name, err)
	default:
		logging.Warn("download of %s failed: %v", name, err)
	}
}

// Preview renders a JPEG still of the original or compressed video at
// ?t=<seconds>, scaled to ?w=<pixels>.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}
	src, ok := resolveSource(w, r, s)
	if !ok {
		return
	}

	at, err := preview.ParseOffset(r.URL.Query().Get("t"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	width := 0
	if raw := r.URL.Query().Get("w"); raw != "" {
		if width, err = strconv.Atoi(raw); err != nil {
			writeJSONError(w, "Invalid width", http.StatusBadRequest)
			return
		}
	}

	frame, err := h.previews.Frame(r.Context(), mux.Vars(r)["source"], src.data, at, width)
	if err != nil {
		if errors.Is(err, preview.ErrUnavailable) {
			writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		logging.Warn("preview failed: %v", err)
		writeJSONError(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	if _, err := w.Write(frame); err != nil {
		logging.Debug("preview write failed: %v", err)
	}
}
