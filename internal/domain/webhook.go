package domain

// WebhookEvent is a verified webhook delivery from Shopify.
type WebhookEvent struct {
	Topic    string
	Shop     string
	Payload  []byte
	Verified bool
}

// Webhook topics handled by the app.
const (
	TopicAppUninstalled = "app/uninstalled"
)
