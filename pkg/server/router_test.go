// Copyright 2026 Chava Systems
//
// Tests for the object API router

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chava-systems/chava/pkg/kms"
	"github.com/chava-systems/chava/pkg/store"
)

func TestRouterDispatchesByMethod(t *testing.T) {
	svc := kms.NewService([]byte("test-secret"))
	s := store.NewMapStore(svc)
	handlers := NewObjectHandlers(s, nil, nil)
	mux := NewRouter(handlers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects/missing", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("GET missing object status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRouterRejectsUnsupportedMethod(t *testing.T) {
	svc := kms.NewService([]byte("test-secret"))
	s := store.NewMapStore(svc)
	handlers := NewObjectHandlers(s, nil, nil)
	mux := NewRouter(handlers)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/objects/obj-1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}
