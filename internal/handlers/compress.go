package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"video-compressor/internal/compressor"
	"video-compressor/internal/intake"
	"video-compressor/internal/logging"
	"video-compressor/internal/metrics"
)

const (
	uploadField = "file"
	// multipartMemory is how much of an upload is buffered before the
	// multipart reader spills to disk.
	multipartMemory = 32 << 20
	// multipartOverhead allows for boundaries and part headers on top of
	// the file itself.
	multipartOverhead = 1 << 20
)

var errMemoryPressure = errors.New("server is under memory pressure, try again later")

// QualityInfo describes one selectable quality option.
type QualityInfo struct {
	ID      compressor.Quality `json:"id"`
	Label   string             `json:"label"`
	CRF     int                `json:"crf"`
	Default bool               `json:"default"`
}

// ListQualities returns the available quality options.
func (h *Handlers) ListQualities(w http.ResponseWriter, _ *http.Request) {
	qualities := compressor.Qualities()
	out := make([]QualityInfo, 0, len(qualities))
	for _, q := range qualities {
		out = append(out, QualityInfo{
			ID:      q,
			Label:   q.Label(),
			CRF:     q.CRF(),
			Default: q == compressor.DefaultQuality,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, out)
}

// UploadFile accepts a single video as multipart field "file" and submits
// it to the session.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}

	if h.memory.IsPaused() {
		metrics.UploadsRejectedTotal.WithLabelValues("memory_pressure").Inc()
		w.Header().Set("Retry-After", "30")
		writeError(w, errMemoryPressure)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rejectUpload(w, &intake.ValidationError{
				Reason: intake.ReasonTooLarge,
				Detail: fmt.Sprintf("upload exceeds the %d byte limit", h.maxUploadSize),
			})
			return
		}
		h.rejectUpload(w, &intake.ValidationError{
			Reason: intake.ReasonNoFile,
			Detail: "expected a multipart form with a \"file\" field",
		})
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	candidates := make([]intake.Candidate, 0, len(headers))
	for _, fh := range headers {
		candidates = append(candidates, intake.Candidate{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
	}

	accepted, err := intake.Validate(candidates, h.maxUploadSize)
	if err != nil {
		h.rejectUpload(w, err)
		return
	}

	data, err := readUpload(headers[0])
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.SubmitFile(compressor.InputFile{Name: accepted.Name, Data: data}); err != nil {
		writeError(w, err)
		return
	}

	writeJSONStatusCode(w, http.StatusAccepted, s.Snapshot())
}

func (h *Handlers) rejectUpload(w http.ResponseWriter, err error) {
	var ve *intake.ValidationError
	if errors.As(err, &ve) {
		metrics.UploadsRejectedTotal.WithLabelValues(string(ve.Reason)).Inc()
	}
	writeError(w, err)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

type qualityRequest struct {
	Quality string `json:"quality"`
}

// SetQuality selects the quality for the next compression.
func (h *Handlers) SetQuality(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}

	var req qualityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	q, err := compressor.ParseQuality(req.Quality)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.SelectQuality(q); err != nil {
		writeError(w, err)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, s.Snapshot())
}

// StartCompression starts compressing the submitted file.
func (h *Handlers) StartCompression(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}

	if err := s.StartCompression(); err != nil {
		writeError(w, err)
		return
	}

	writeJSONStatusCode(w, http.StatusAccepted, s.Snapshot())
}

// Discard drops the finished or failed result and returns to intake.
func (h *Handlers) Discard(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}

	if err := s.Discard(); err != nil {
		writeError(w, err)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, s.Snapshot())
}
