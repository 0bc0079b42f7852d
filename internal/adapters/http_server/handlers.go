package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/samecityapp/hotelfinder/internal/app"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

type Handlers struct {
	Q    *app.QueryService
	Runs *app.RunRegistry
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/searches", h.triggerSearch)
	s.mux.Get("/v1/searches", h.searchStatus)
	s.mux.Get("/v1/venues", h.listVenues)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// triggerSearch kicks off a background run and returns immediately. It
// always reports acceptance; pipeline failures surface only through the
// run status and the eventual persisted state.
func (h *Handlers) triggerSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected JSON with a location field")
		return
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid location", "location must be non-empty")
		return
	}

	started := h.Runs.Trigger(location)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"location": location,
		"started":  started,
	})
}

func (h *Handlers) searchStatus(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid location", "location query parameter is required")
		return
	}
	st, ok := h.Runs.Status(location)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "no run recorded for location")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(st); err != nil {
		log.Error().Err(err).Msg("failed to write searchStatus body")
	}
}

func (h *Handlers) listVenues(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid location", "location query parameter is required")
		return
	}

	out, err := h.Q.ListVenues(r.Context(), location)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Query failed", "could not list venues")
		return
	}
	if out == nil {
		out = []domain.VenueRecord{} // keep JSON [] instead of null
	}

	etag, body := calcETagAndBody(out)
	// Polling clients re-query on a fixed interval; a stable ETag lets an
	// unchanged result set short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listVenues body")
	}
}
