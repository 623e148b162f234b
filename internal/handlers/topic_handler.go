package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/emilykay2/tbuie/internal/anchor"
	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/repositories"
	"github.com/emilykay2/tbuie/internal/services"
)

// maxFinishedBody bounds a finalized-anchor submission
const maxFinishedBody = 8 << 20

// Machine-readable failure reasons
const (
	ReasonMalformedAnchors  = "malformed_anchors"
	ReasonUnknownToken      = "unknown_token"
	ReasonEmptyAnchorGroup  = "empty_anchor_group"
	ReasonInvalidBody       = "invalid_body"
	ReasonPersistenceFailed = "persistence_failed"
	ReasonInternal          = "internal"
)

// TopicAPI is the part of services.TopicService the HTTP layer needs
type TopicAPI interface {
	Vocab() []string
	Topics(ctx context.Context, groups [][]string) (*services.TopicsResult, error)
	Finish(ctx context.Context, payload []byte) (string, error)
}

// TopicHandler handles the interactive anchor endpoints
type TopicHandler struct {
	service TopicAPI
	logger  *log.Logger
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(service TopicAPI, logger *log.Logger) *TopicHandler {
	return &TopicHandler{
		service: service,
		logger:  logger,
	}
}

// Vocab returns the corpus vocabulary
// @Summary Get vocabulary
// @Description Returns every token an anchor may name, in index order
// @Tags topics
// @Produce json
// @Success 200 {object} models.VocabResponse
// @Router /vocab [get]
func (h *TopicHandler) Vocab(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, models.VocabResponse{Vocab: h.service.Vocab()})
}

// Topics recovers topics for a set of anchors
// @Summary Recover topics
// @Description Recovers one topic per anchor group and reports held-out classification accuracy.
// @Description Without the anchors parameter the startup Gram-Schmidt anchors are used.
// @Description Submitted anchors are echoed back unchanged, before trimming and de-duplication.
// @Tags topics
// @Produce json
// @Param anchors query string false "JSON list of token groups, e.g. [[\"space\",\"nasa\"],[\"hockey\"]]"
// @Success 200 {object} models.TopicsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /topics [get]
func (h *TopicHandler) Topics(w http.ResponseWriter, r *http.Request) {
	var groups [][]string
	if raw, ok := r.URL.Query()["anchors"]; ok {
		if err := json.Unmarshal([]byte(raw[0]), &groups); err != nil {
			h.logger.Printf("Malformed anchors from %s: %v", r.RemoteAddr, err)
			h.sendError(w, http.StatusBadRequest, ReasonMalformedAnchors, "anchors must be a JSON list of token lists", "")
			return
		}
		if groups == nil {
			groups = [][]string{}
		}
	}

	res, err := h.service.Topics(r.Context(), groups)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.sendJSON(w, http.StatusOK, models.TopicsResponse{
		Anchors:  res.Anchors,
		Topics:   res.Topics,
		Accuracy: res.Accuracy,
		Warnings: len(res.Warnings),
	})
}

// Finished stores the analyst's final anchors
// @Summary Finalize anchors
// @Description Persists the submitted anchor configuration under the dataset's directory
// @Tags topics
// @Accept json
// @Produce text/plain
// @Param body body object true "Final anchor configuration"
// @Success 200 {string} string "OK"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /finished [post]
func (h *TopicHandler) Finished(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFinishedBody))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, ReasonInvalidBody, "Failed to read request body", "")
		return
	}

	if _, err := h.service.Finish(r.Context(), body); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

// handleError maps service errors onto status codes and reasons
func (h *TopicHandler) handleError(w http.ResponseWriter, err error) {
	var (
		unknown *anchor.UnknownTokenError
		empty   *anchor.EmptyAnchorGroupError
		perr    *repositories.PersistenceError
	)
	switch {
	case errors.As(err, &unknown):
		h.sendError(w, http.StatusBadRequest, ReasonUnknownToken, err.Error(), unknown.Token)
	case errors.As(err, &empty):
		h.sendError(w, http.StatusBadRequest, ReasonEmptyAnchorGroup, err.Error(), "")
	case errors.Is(err, anchor.ErrNoAnchors):
		h.sendError(w, http.StatusBadRequest, ReasonMalformedAnchors, err.Error(), "")
	case errors.Is(err, services.ErrInvalidPayload):
		h.sendError(w, http.StatusBadRequest, ReasonInvalidBody, err.Error(), "")
	case errors.As(err, &perr):
		h.logger.Printf("❌ Failed to persist anchors: %v", err)
		h.sendError(w, http.StatusInternalServerError, ReasonPersistenceFailed, "Failed to save anchors", "")
	default:
		h.logger.Printf("❌ Request failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, ReasonInternal, "Internal error", "")
	}
}

func (h *TopicHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *TopicHandler) sendError(w http.ResponseWriter, status int, reason, message, token string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
		Reason:  reason,
		Token:   token,
	})
}

// Response types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Reason  string `json:"reason"`
	Token   string `json:"token,omitempty"`
}
