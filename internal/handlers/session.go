package handlers

import (
	"errors"
	"net/http"
	"time"

	"video-compressor/internal/compressor"
	"video-compressor/internal/session"
)

// SessionCookieName is the name of the session cookie
const SessionCookieName = "video_compressor_session"

func (h *Handlers) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentSession resolves the session named by the request cookie.
func (h *Handlers) currentSession(r *http.Request) (string, *compressor.Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", nil, session.ErrNotFound
	}
	s, err := h.sessions.Get(cookie.Value)
	if err != nil {
		return "", nil, err
	}
	return cookie.Value, s, nil
}

// withSession resolves the current session or writes 404.
func (h *Handlers) withSession(w http.ResponseWriter, r *http.Request) (string, *compressor.Session, bool) {
	id, s, err := h.currentSession(r)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			clearSessionCookie(w)
		}
		writeError(w, err)
		return "", nil, false
	}
	return id, s, true
}

// CreateSession starts a session for the visitor, reusing the one named by
// the cookie when it is still open.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	if id, s, err := h.currentSession(r); err == nil {
		h.setSessionCookie(w, id)
		writeJSONStatusCode(w, http.StatusOK, s.Snapshot())
		return
	}

	id, s, err := h.sessions.Create()
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, id)
	writeJSONStatusCode(w, http.StatusCreated, s.Snapshot())
}

// GetSession returns the current session view.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.withSession(w, r)
	if !ok {
		return
	}
	writeJSONStatusCode(w, http.StatusOK, s.Snapshot())
}

// DeleteSession closes the session, abandoning any running compression.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.withSession(w, r)
	if !ok {
		return
	}
	h.sessions.Remove(id)
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
