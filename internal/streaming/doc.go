/*
Package streaming writes large response bodies without letting a slow or
vanished client pin the handler.

Compressed videos are served from memory as downloads. A client that stops
reading would otherwise keep the handler goroutine, and the session buffer
it references, alive indefinitely. TimeoutWriter bounds every chunk with a
write deadline, bounds the whole transfer with an optional maximum duration,
and stops as soon as the request context is cancelled.

	func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="clip_compressed.mp4"`)
		err := streaming.StreamWithTimeout(r.Context(), w, bytes.NewReader(data), int64(len(data)),
			streaming.DefaultTimeoutWriterConfig())
		if errors.Is(err, streaming.ErrClientGone) {
			return // nothing to report
		}
	}

Write deadlines are applied through http.ResponseController. Writers that do
not support deadlines (for example httptest.ResponseRecorder) are written to
without one.
*/
package streaming
