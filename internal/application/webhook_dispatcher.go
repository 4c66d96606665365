package application

import (
	"context"
	"fmt"

	"shopify-app-auth/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes webhook events for the topics it accepts
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified webhook events to registered handlers
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates an empty dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler; handlers run in registration order
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch runs every handler accepting the event topic.
// It returns false when no handler accepted the topic.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	handled := false
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		handled = true
		if err := h.Handle(ctx, event); err != nil {
			return handled, fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
		}
	}

	if !handled {
		d.logger.Info().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("No handler registered for webhook topic")
	}
	return handled, nil
}
