package ports

import (
	"context"

	"shopify-app-auth/internal/domain"
)

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	// GetByShopName returns nil, nil when no client exists for the shop
	GetByShopName(ctx context.Context, shopName string) (*domain.Client, error)

	// Save inserts or replaces the client keyed by its shop name
	Save(ctx context.Context, client *domain.Client) error
}

// SessionStore persists browser session state by session ID
type SessionStore interface {
	// Get returns nil, nil for an unknown or expired session
	Get(ctx context.Context, id string) (*domain.SessionState, error)
	Save(ctx context.Context, id string, state *domain.SessionState) error
	Delete(ctx context.Context, id string) error
}

// EncryptionService seals secrets before they are stored
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
