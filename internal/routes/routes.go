package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/emilykay2/tbuie/internal/handlers"
)

// Handlers holds every handler the router mounts
type Handlers struct {
	Health http.HandlerFunc
	Home   http.HandlerFunc
	Topics *handlers.TopicHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Anchor endpoints
	if h.Topics != nil {
		router.HandleFunc("/vocab", h.Topics.Vocab).Methods(http.MethodGet)
		router.HandleFunc("/topics", h.Topics.Topics).Methods(http.MethodGet)
		router.HandleFunc("/finished", h.Topics.Finished).Methods(http.MethodGet, http.MethodPost)
	}

	// Main routes
	router.HandleFunc("/", h.Home).Methods(http.MethodGet)
}
