package crl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/gateway-fm/crl-publisher/internal/freeze"
	"github.com/gateway-fm/crl-publisher/internal/store"
)

// maxUploadBytes bounds an uploaded CRL body. CRLs for even very large
// CAs fit comfortably below this.
const maxUploadBytes = 16 << 20

// APIServer handles HTTP requests.
type APIServer struct {
	service      *Service
	freeze       *freeze.Switch
	adminKeyHash []byte
}

// NewAPIServer creates a new API server. adminKeyHash is the bcrypt hash
// of the operator key guarding the freeze endpoints.
func NewAPIServer(service *Service, freezeSwitch *freeze.Switch, adminKeyHash []byte) *APIServer {
	return &APIServer{service: service, freeze: freezeSwitch, adminKeyHash: adminKeyHash}
}

// RegisterHandlers registers the HTTP handlers.
func (s *APIServer) RegisterHandlers() {
	http.HandleFunc("/api/crl", s.handleUpload)
	http.HandleFunc("/api/crls", s.listHandler(PrefixCRL))
	http.HandleFunc("/api/dcrls", s.listHandler(PrefixDelta))
	http.HandleFunc("/api/certificates", s.listHandler(PrefixCA))
	http.HandleFunc("/api/object", s.handleObject)
	http.HandleFunc("/admin/freeze", s.handleFreeze)
	http.HandleFunc("/admin/unfreeze", s.handleUnfreeze)
}

func (s *APIServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.freeze.Frozen() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "frozen",
			"message": "ingestion is frozen by an operator",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "unreadable_body",
			"message": err.Error(),
		})
		return
	}
	if len(body) > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error":   "body_too_large",
			"message": fmt.Sprintf("upload exceeds %d bytes", maxUploadBytes),
		})
		return
	}

	result, err := s.service.Ingest(r.Context(), body, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) listHandler(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := s.service.List(r.Context(), prefix)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "max-age=60, stale-while-revalidate=300")
		if _, err := w.Write(payload); err != nil {
			slog.Error("failed to write list response", "prefix", prefix, "err", err)
		}
	}
}

func (s *APIServer) handleObject(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "missing_key",
			"message": "query parameter 'key' is required",
		})
		return
	}

	payload, err := s.service.ObjectSummary(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		slog.Error("failed to write object response", "key", key, "err", err)
	}
}

// handleFreeze records an authorized freeze request. Three requests
// within one minute engage the freeze, mirroring how the kill switch on
// our other services avoids acting on a single stray request.
func (s *APIServer) handleFreeze(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeAdmin(w, r) {
		return
	}

	remaining, frozen := s.freeze.RegisterFreezeRequest()
	if frozen {
		slog.Info("ingestion frozen via admin endpoint")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "frozen",
			"message": "Ingestion has been frozen",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "attempt recorded",
		"attempts_remaining": remaining,
		"message":            fmt.Sprintf("Need %d more requests within 1 minute to freeze ingestion", remaining),
	})
}

func (s *APIServer) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeAdmin(w, r) {
		return
	}

	s.freeze.Unfreeze()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "unfrozen",
		"message": "Ingestion has been re-enabled",
	})
}

func (s *APIServer) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	apiKey := r.URL.Query().Get("key")
	if apiKey == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   string(CodeUnauthorized),
			"message": "missing API key",
		})
		return false
	}

	if len(s.adminKeyHash) == 0 ||
		bcrypt.CompareHashAndPassword(s.adminKeyHash, []byte(apiKey)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   string(CodeUnauthorized),
			"message": "invalid API key",
		})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var pipelineErr *Error
	switch {
	case errors.As(err, &pipelineErr):
		writeJSON(w, pipelineErr.HTTPStatus(), map[string]string{
			"error":   string(pipelineErr.Code),
			"message": pipelineErr.Error(),
		})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "not_found",
			"message": err.Error(),
		})
	default:
		slog.Error("unhandled API error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal",
			"message": "internal server error",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
