// Copyright 2026 Chava Systems
//
// HTTP routing for the object API

package server

import "net/http"

// NewRouter wires the object API onto a fresh ServeMux.
func NewRouter(handlers *ObjectHandlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/objects/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.HandleGetObject(w, r)
		case http.MethodPut:
			handlers.HandlePutObject(w, r)
		default:
			handlers.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET and PUT are allowed")
		}
	})
	return mux
}
