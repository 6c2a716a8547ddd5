// Copyright 2026 Chava Systems
//
// Untrusted-consumer HTTP handlers over an ObligationKeyedStore

// Package server exposes the untrusted-consumer HTTP surface over an
// ObligationKeyedStore: retrieval only ever succeeds through the KMS's
// gated release, never by trusting a caller-supplied claim that an
// object is cleared.
//
// Grounded on pkg/server/proof_handlers.go's handler/writeJSON/writeError
// shape.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/chava-systems/chava/pkg/chava"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/store"
)

// ObjectStore is the subset of store.MapStore's surface these handlers
// need, kept as an interface so tests can substitute a fake.
type ObjectStore interface {
	Store(id string, o chava.Object) error
	Retrieve(id string) (chava.Object, error)
}

// ObjectHandlers serves the /api/v1/objects/{id} surface.
type ObjectHandlers struct {
	store   ObjectStore
	logger  *log.Logger
	metrics *metrics.Registry // nil is valid: metrics become a no-op
}

// NewObjectHandlers constructs handlers over store. A nil logger falls
// back to a component-tagged default; a nil reg disables metrics.
func NewObjectHandlers(s ObjectStore, logger *log.Logger, reg *metrics.Registry) *ObjectHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[chava:api] ", log.LstdFlags)
	}
	return &ObjectHandlers{store: s, logger: logger, metrics: reg}
}

func (h *ObjectHandlers) countRetrieve(outcome string) {
	if h.metrics != nil {
		h.metrics.RetrieveTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *ObjectHandlers) countStore(outcome string) {
	if h.metrics != nil {
		h.metrics.StoreTotal.WithLabelValues(outcome).Inc()
	}
}

// HandleGetObject handles GET /api/v1/objects/{id}: retrieves and
// unwraps the object, or fails with 403 if it is not cleared and 404 if
// it does not exist.
func (h *ObjectHandlers) HandleGetObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/objects/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_ID", "object id is required")
		return
	}

	obj, err := h.store.Retrieve(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.countRetrieve("not_found")
		h.writeError(w, http.StatusNotFound, "OBJECT_NOT_FOUND", fmt.Sprintf("no object with id %q", id))
		return
	case errors.Is(err, store.ErrCryptographic):
		h.countRetrieve("cryptographic_failure")
		h.writeError(w, http.StatusForbidden, "NOT_CLEARED", "object has residual obligations or a conflicted evidence chain")
		return
	case err != nil:
		h.countRetrieve("error")
		h.logger.Printf("retrieve %s: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to retrieve object")
		return
	}

	value, err := obj.Unwrap()
	if err != nil {
		h.countRetrieve("cryptographic_failure")
		h.writeError(w, http.StatusForbidden, "NOT_CLEARED", err.Error())
		return
	}
	h.countRetrieve("ok")
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "value": value})
}

// HandlePutObject handles PUT /api/v1/objects/{id}: stores a wire-form
// object under id.
func (h *ObjectHandlers) HandlePutObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only PUT is allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/objects/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_ID", "object id is required")
		return
	}

	body, err := jsonBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	obj, err := chava.FromJSON(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_OBJECT", err.Error())
		return
	}
	if err := h.store.Store(id, obj); err != nil {
		h.countStore("error")
		h.logger.Printf("store %s: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to store object")
		return
	}
	h.countStore("ok")
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "stored": true})
}

func jsonBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty request body")
	}
	return buf, nil
}

func (h *ObjectHandlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *ObjectHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
