package webhook_handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopify-app-auth/internal/domain"

	"github.com/rs/zerolog"
)

// ClientUninstaller marks a shop's client as uninstalled
type ClientUninstaller interface {
	MarkUninstalled(ctx context.Context, shop string) error
}

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger      zerolog.Logger
	uninstaller ClientUninstaller
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, uninstaller ClientUninstaller) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:      logger,
		uninstaller: uninstaller,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle processes an app uninstalled webhook event
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var shopData struct {
			Domain          string `json:"domain"`
			MyshopifyDomain string `json:"myshopify_domain"`
		}
		if err := json.Unmarshal(event.Payload, &shopData); err != nil {
			return fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
		}
		// Clients are keyed by the myshopify domain, so prefer it over a custom domain
		shopDomain = shopData.MyshopifyDomain
		if shopDomain == "" {
			shopDomain = shopData.Domain
		}
	}
	if shopDomain == "" {
		return errors.New("app uninstalled webhook without shop domain")
	}

	err := h.uninstaller.MarkUninstalled(ctx, shopDomain)
	if errors.Is(err, domain.ErrClientNotFound) {
		h.logger.Warn().Str("shop", shopDomain).Msg("App uninstalled for shop without a stored client")
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("App uninstalled - client deactivated")
	return nil
}
