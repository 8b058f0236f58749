// Package server wires HTTP handlers into a router for the relay.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures and returns the application router: health check
// at the root, the WebSocket endpoint, and the interactive test page.
func SetupRoutes(hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/socket", WebSocketHandler(hub))
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	return r
}
