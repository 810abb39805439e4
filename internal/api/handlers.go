/**
 * @description
 * HTTP handlers for queue diagnostics.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jaldanatrf/assignment-service/pkg/rabbitmq"
	"github.com/sirupsen/logrus"
)

const maxTestMessageBytes = 64 << 10

// QueueService is the consumer surface exposed over HTTP.
type QueueService interface {
	Status() rabbitmq.Status
	SendTestMessage(ctx context.Context, payload any) error
}

// Handler holds the queue consumer that handlers will interact with.
type Handler struct {
	queue QueueService
	log   *logrus.Entry
}

// NewHandler creates a new Handler with the given queue service.
func NewHandler(queue QueueService, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{queue: queue, log: logger.WithField("component", "api")}
}

func (h *Handler) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.queue.Status())
}

func (h *Handler) handleSendTestMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTestMessageBytes+1))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxTestMessageBytes {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var object map[string]any
	if err := json.Unmarshal(body, &object); err != nil || object == nil {
		http.Error(w, "Request body must be a JSON object", http.StatusBadRequest)
		return
	}

	if err := h.queue.SendTestMessage(r.Context(), json.RawMessage(body)); err != nil {
		if errors.Is(err, rabbitmq.ErrNotConnected) || errors.Is(err, rabbitmq.ErrStopped) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.log.WithError(err).Error("failed to publish test message")
		http.Error(w, "Failed to publish test message", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
