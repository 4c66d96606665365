package webhook_handlers

import (
	"context"
	"errors"
	"testing"

	"shopify-app-auth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeUninstaller struct {
	shops []string
	err   error
}

func (f *fakeUninstaller) MarkUninstalled(_ context.Context, shop string) error {
	f.shops = append(f.shops, shop)
	return f.err
}

func TestAppUninstalledHandler_CanHandle(t *testing.T) {
	h := NewAppUninstalledHandler(zerolog.Nop(), &fakeUninstaller{})

	assert.True(t, h.CanHandle("app/uninstalled"))
	assert.False(t, h.CanHandle("orders/create"))
}

func TestAppUninstalledHandler_Handle(t *testing.T) {
	tests := []struct {
		name     string
		event    domain.WebhookEvent
		wantShop string
		wantErr  bool
	}{
		{
			name:     "shop from header",
			event:    domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "foo.myshopify.com", Payload: []byte(`{}`)},
			wantShop: "foo.myshopify.com",
		},
		{
			name:     "myshopify domain from payload",
			event:    domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Payload: []byte(`{"domain":"shop.example.com","myshopify_domain":"foo.myshopify.com"}`)},
			wantShop: "foo.myshopify.com",
		},
		{
			name:     "custom domain fallback",
			event:    domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Payload: []byte(`{"domain":"foo.myshopify.com"}`)},
			wantShop: "foo.myshopify.com",
		},
		{
			name:    "no shop",
			event:   domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Payload: []byte(`{}`)},
			wantErr: true,
		},
		{
			name:    "invalid payload",
			event:   domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Payload: []byte(`not json`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &fakeUninstaller{}
			h := NewAppUninstalledHandler(zerolog.Nop(), u)

			err := h.Handle(context.Background(), &tt.event)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, u.shops)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, []string{tt.wantShop}, u.shops)
		})
	}
}

func TestAppUninstalledHandler_MissingClient(t *testing.T) {
	h := NewAppUninstalledHandler(zerolog.Nop(), &fakeUninstaller{err: domain.ErrClientNotFound})

	err := h.Handle(context.Background(), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "gone.myshopify.com"})

	assert.NoError(t, err)
}

func TestAppUninstalledHandler_UninstallerError(t *testing.T) {
	h := NewAppUninstalledHandler(zerolog.Nop(), &fakeUninstaller{err: errors.New("db down")})

	err := h.Handle(context.Background(), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "foo.myshopify.com"})

	assert.Error(t, err)
}
