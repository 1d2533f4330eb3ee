package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reviewhub/internal/app"
	"reviewhub/internal/domain"
)

type Handlers struct {
	Matches  *app.MatchService
	Links    *app.LinkService
	Sessions domain.SessionResolver
}

// Stable machine-readable error codes.
const (
	codeInvalidTenant = "invalid_tenant_id"
	codeInvalidPairs  = "invalid_pairs"
	codeUnauthorized  = "unauthorized"
	codeInternal      = "internal"
)

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Use(Authenticate(h.Sessions))
		r.Get("/review-matches", h.discoverMatches)
		r.Post("/review-matches", h.commitMatches)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail, code string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Code: code, Detail: detail}); err != nil {
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

// tenantFromRequest validates the path tenant id and checks it against the
// authenticated identity. A foreign tenant reads as not-found rather than
// forbidden: other tenants are invisible, not merely locked.
func tenantFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid tenant ID", "tenant id must be a UUID", codeInvalidTenant)
		return uuid.UUID{}, false
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no caller identity", codeUnauthorized)
		return uuid.UUID{}, false
	}
	if id.BusinessID != tenantID {
		writeProblem(w, http.StatusNotFound, "Not Found", "tenant not found", "")
		return uuid.UUID{}, false
	}
	return tenantID, true
}

func (h *Handlers) discoverMatches(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	page, err := h.Matches.Discover(r.Context(), tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenantID.String()).Msg("match discovery failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "match discovery failed", codeInternal)
		return
	}

	etag, body := calcETagAndBody(page)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write discoverMatches body")
	}
}

func (h *Handlers) commitMatches(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Matches []domain.MatchPair `json:"matches"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be JSON with a matches array", codeInvalidPairs)
		return
	}

	report, err := h.Links.Commit(r.Context(), tenantID, req.Matches)
	if err != nil {
		if errors.Is(err, domain.ErrNoPairs) {
			writeProblem(w, http.StatusBadRequest, "Invalid matches", "no syntactically valid match pair in request", codeInvalidPairs)
			return
		}
		// storage detail stays in the logs, not on the wire
		log.Error().Err(err).Str("tenant", tenantID.String()).Msg("link commit failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "link commit failed", codeInternal)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		log.Error().Err(err).Msg("failed to write commitMatches body")
	}
}
