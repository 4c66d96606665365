package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify operations needed by the login flow
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// Shop API
	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)
}
