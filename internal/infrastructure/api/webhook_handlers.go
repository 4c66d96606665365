package api

import (
	"encoding/json"
	"io"
	"net/http"

	"shopify-app-auth/internal/application"
	"shopify-app-auth/internal/domain"
	"shopify-app-auth/internal/infrastructure/metrics"
	shopifyinfra "shopify-app-auth/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookHandlers receives Shopify webhook deliveries
type WebhookHandlers struct {
	verifier   *shopifyinfra.WebhookVerifier
	dispatcher *application.WebhookDispatcher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewWebhookHandlers creates the webhook endpoint handlers
func NewWebhookHandlers(
	verifier *shopifyinfra.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WebhookHandlers {
	return &WebhookHandlers{
		verifier:   verifier,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
	}
}

// AppUninstalled handles POST /webhooks/app-uninstalled
func (h *WebhookHandlers) AppUninstalled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		topic = domain.TopicAppUninstalled
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
	if err := h.verifier.Verify(payload, hmacHeader); err != nil {
		h.metrics.RecordWebhook(topic, "invalid_signature")
		h.logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event := &domain.WebhookEvent{
		Topic:    topic,
		Shop:     r.Header.Get("X-Shopify-Shop-Domain"),
		Payload:  payload,
		Verified: true,
	}

	handled, err := h.dispatcher.Dispatch(ctx, event)
	if err != nil {
		h.metrics.RecordWebhook(topic, "error")
		h.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("shop", event.Shop).
			Str("request_id", requestID(r)).
			Msg("Failed to dispatch webhook event")

		// Return 500 to trigger Shopify retry
		http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
		return
	}

	outcome := "handled"
	if !handled {
		outcome = "ignored"
	}
	h.metrics.RecordWebhook(topic, outcome)

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
