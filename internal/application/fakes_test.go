package application

import (
	"context"
	"errors"
	"sync"

	"shopify-app-auth/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

type fakeClientRepository struct {
	mu      sync.Mutex
	clients map[string]domain.Client
	saves   int
	getErr  error
	saveErr error
}

func newFakeClientRepository() *fakeClientRepository {
	return &fakeClientRepository{clients: make(map[string]domain.Client)}
}

func (r *fakeClientRepository) GetByShopName(_ context.Context, shopName string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.clients[shopName]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeClientRepository) Save(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.clients[client.ShopName] = *client
	return nil
}

func (r *fakeClientRepository) get(shop string) (domain.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[shop]
	return c, ok
}

type fakeShopifyClient struct {
	token       string
	exchangeErr error
	shop        *shopify.Shop
	shopErr     error

	exchangedCodes []string
	shopCalls      int
}

func (c *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	if shop == "" {
		return "", errors.New("shop is required")
	}
	return "https://" + shop + "/admin/oauth/authorize?state=" + state, nil
}

func (c *fakeShopifyClient) ExchangeToken(_ context.Context, _ string, code string) (string, error) {
	c.exchangedCodes = append(c.exchangedCodes, code)
	if c.exchangeErr != nil {
		return "", c.exchangeErr
	}
	return c.token, nil
}

func (c *fakeShopifyClient) GetShop(_ context.Context, _ string, _ string) (*shopify.Shop, error) {
	c.shopCalls++
	if c.shopErr != nil {
		return nil, c.shopErr
	}
	return c.shop, nil
}
