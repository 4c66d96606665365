package shopify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"shopify-app-auth/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	apiKey     string
	apiVersion string
	app        goshopify.App
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret, apiVersion string, logger zerolog.Logger) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:     apiKey,
		apiVersion: apiVersion,
		app:        app,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client pinned to the configured API version
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	var opts []goshopify.Option
	if c.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(c.apiVersion))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	if shop == "" {
		return "", fmt.Errorf("shop is required")
	}

	// Shopify expects scopes comma-separated with no spaces
	scopesStr := strings.Join(scopes, ",")

	query := url.Values{}
	query.Set("client_id", c.apiKey)
	query.Set("scope", scopesStr)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)

	authURL := url.URL{
		Scheme:   "https",
		Host:     shop,
		Path:     "/admin/oauth/authorize",
		RawQuery: query.Encode(),
	}

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", scopes).
		Str("redirect_uri", redirectURI).
		Msg("Generated OAuth authorization URL")

	return authURL.String(), nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("failed to exchange token: empty access token")
	}
	return token, nil
}

// Shop API

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}
