package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes adds the health, version and API routes to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/qualities", h.ListQualities).Methods("GET")

	api.HandleFunc("/session", h.CreateSession).Methods("POST")
	api.HandleFunc("/session", h.GetSession).Methods("GET")
	api.HandleFunc("/session", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/session/file", h.UploadFile).Methods("POST")
	api.HandleFunc("/session/quality", h.SetQuality).Methods("PUT")
	api.HandleFunc("/session/compress", h.StartCompression).Methods("POST")
	api.HandleFunc("/session/discard", h.Discard).Methods("POST")
	api.HandleFunc("/session/events", h.Events).Methods("GET")
	api.HandleFunc("/session/media/{source:original|compressed}", h.ServeMedia).Methods("GET", "HEAD")
	api.HandleFunc("/session/preview/{source:original|compressed}", h.Preview).Methods("GET")
	api.HandleFunc("/session/download", h.Download).Methods("GET")
}
