// Copyright 2026 Chava Systems
//
// Tests for the object API handlers

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chava-systems/chava/pkg/chava"
	"github.com/chava-systems/chava/pkg/kms"
	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/store"
)

func newTestHandlers() *ObjectHandlers {
	svc := kms.NewService([]byte("test-secret"))
	s := store.NewMapStore(svc)
	return NewObjectHandlers(s, nil, nil)
}

func TestHandleGetObjectMethodNotAllowed(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/objects/abc", nil)
	rr := httptest.NewRecorder()
	h.HandleGetObject(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleGetObjectMissingID(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects/", nil)
	rr := httptest.NewRecorder()
	h.HandleGetObject(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleGetObjectNotFound(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects/missing", nil)
	rr := httptest.NewRecorder()
	h.HandleGetObject(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandlePutThenGetObjectRoundTrip(t *testing.T) {
	h := newTestHandlers()

	body, err := chava.New("hello", nil).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/objects/obj-1", bytes.NewReader(body))
	putRR := httptest.NewRecorder()
	h.HandlePutObject(putRR, putReq)
	if putRR.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d, body=%s", putRR.Code, http.StatusOK, putRR.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/objects/obj-1", nil)
	getRR := httptest.NewRecorder()
	h.HandleGetObject(getRR, getReq)
	if getRR.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d, body=%s", getRR.Code, http.StatusOK, getRR.Body.String())
	}

	var got map[string]any
	if err := json.NewDecoder(getRR.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["value"] != "hello" {
		t.Errorf("value = %v, want %q", got["value"], "hello")
	}
}

func TestHandleGetObjectNotClearedReturnsForbidden(t *testing.T) {
	h := newTestHandlers()
	ob, _ := obligation.New("sql_safe", "")
	body, err := chava.New("hello", obligation.Set{ob}).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/objects/obj-1", bytes.NewReader(body))
	putRR := httptest.NewRecorder()
	h.HandlePutObject(putRR, putReq)
	if putRR.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", putRR.Code, http.StatusOK)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/objects/obj-1", nil)
	getRR := httptest.NewRecorder()
	h.HandleGetObject(getRR, getReq)
	if getRR.Code != http.StatusForbidden {
		t.Errorf("GET status = %d, want %d", getRR.Code, http.StatusForbidden)
	}
}

func TestHandlePutObjectInvalidBody(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/obj-1", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	h.HandlePutObject(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandlePutObjectMethodNotAllowed(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects/obj-1", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	h.HandlePutObject(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}
