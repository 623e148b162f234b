package routes

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/emilykay2/tbuie/internal/handlers"
	"github.com/emilykay2/tbuie/internal/services"
)

type stubTopics struct {
	finished []string
}

func (s *stubTopics) Vocab() []string { return []string{"alpha"} }

func (s *stubTopics) Topics(ctx context.Context, groups [][]string) (*services.TopicsResult, error) {
	return &services.TopicsResult{Anchors: [][]string{{"alpha"}}, Topics: [][]string{{"alpha"}}}, nil
}

func (s *stubTopics) Finish(ctx context.Context, payload []byte) (string, error) {
	s.finished = append(s.finished, string(payload))
	return "path", nil
}

func newTestRouter(stub *stubTopics) *mux.Router {
	router := mux.NewRouter()
	RegisterRoutes(router, &Handlers{
		Health: handlers.HealthCheckHandler,
		Home:   handlers.HomeHandler("newsgroups"),
		Topics: handlers.NewTopicHandler(stub, log.New(io.Discard, "", 0)),
	})
	return router
}

func TestRegisterRoutes(t *testing.T) {
	stub := &stubTopics{}
	router := newTestRouter(stub)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/vocab", "", http.StatusOK},
		{http.MethodGet, "/topics", "", http.StatusOK},
		{http.MethodPost, "/finished", `{"a":1}`, http.StatusOK},
		{http.MethodGet, "/finished", `{"b":2}`, http.StatusOK},
		{http.MethodPost, "/topics", "", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/finished", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, stub.finished)
}

func TestRegisterRoutes_WithoutTopics(t *testing.T) {
	router := mux.NewRouter()
	RegisterRoutes(router, &Handlers{
		Health: handlers.HealthCheckHandler,
		Home:   handlers.HomeHandler("newsgroups"),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vocab", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
