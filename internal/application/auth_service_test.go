package application

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shopify-app-auth/internal/domain"
	shopifyinfra "shopify-app-auth/internal/infrastructure/shopify"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "hush"

type testEnv struct {
	svc      *AuthService
	repo     *fakeClientRepository
	shopify  *fakeShopifyClient
	verifier *shopifyinfra.QueryVerifier
}

func newTestEnv() *testEnv {
	repo := newFakeClientRepository()
	client := &fakeShopifyClient{token: "tok123"}
	verifier := shopifyinfra.NewQueryVerifier(testSecret)
	svc := NewAuthService(repo, client, verifier, AuthServiceOptions{Scopes: []string{"read_products"}}, zerolog.Nop())
	return &testEnv{svc: svc, repo: repo, shopify: client, verifier: verifier}
}

// signedCallback builds the query Shopify would send back for the given state token.
func (e *testEnv) signedCallback(shop, state string, extra map[string]string) map[string]string {
	params := map[string]string{
		"shop":      shop,
		"code":      "authcode",
		"state":     state,
		"timestamp": "1700000000",
	}
	for k, v := range extra {
		params[k] = v
	}
	params["hmac"] = e.verifier.Sign(params)
	return params
}

func TestBeginAuth(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{}

	authURL, err := env.svc.BeginAuth(state, "  foo.myshopify.com ", "https://app.example.com/finalize")
	require.NoError(t, err)

	assert.Len(t, state.OAuthState, 2*stateTokenBytes)
	assert.Equal(t, "https://foo.myshopify.com/admin/oauth/authorize?state="+state.OAuthState, authURL)

	first := state.OAuthState
	_, err = env.svc.BeginAuth(state, "foo.myshopify.com", "https://app.example.com/finalize")
	require.NoError(t, err)
	assert.NotEqual(t, first, state.OAuthState)
}

func TestBeginAuth_MissingShop(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{}

	_, err := env.svc.BeginAuth(state, "   ", "https://app.example.com/finalize")

	assert.ErrorIs(t, err, domain.ErrMissingShop)
	assert.Empty(t, state.OAuthState)
}

func TestBeginAuth_RandomFailure(t *testing.T) {
	env := newTestEnv()
	env.svc.random = bytes.NewReader(nil)

	_, err := env.svc.BeginAuth(&domain.SessionState{}, "foo.myshopify.com", "https://app.example.com/finalize")
	assert.Error(t, err)
}

func TestFinalize_NewClient(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{OAuthState: "st4te"}

	redirect, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "st4te", nil))
	require.NoError(t, err)

	assert.Equal(t, "/", redirect)
	assert.Empty(t, state.OAuthState)
	assert.Equal(t, &domain.ShopSession{ShopURL: "foo.myshopify.com", AccessToken: "tok123"}, state.Shop)
	assert.Equal(t, []string{"authcode"}, env.shopify.exchangedCodes)

	client, ok := env.repo.get("foo.myshopify.com")
	require.True(t, ok)
	assert.Equal(t, "foo.myshopify.com", client.ShopURL)
	assert.Equal(t, "tok123", client.AccessToken)
	assert.True(t, client.IsActive)
	assert.Nil(t, client.UninstallDate)
	assert.False(t, client.TrialUsed)
	assert.Empty(t, client.Email)
}

func TestFinalize_RedirectsToStoredReturnPathOnce(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{OAuthState: "st4te", ReturnTo: "/reports?month=3"}

	redirect, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "st4te", nil))
	require.NoError(t, err)

	assert.Equal(t, "/reports?month=3", redirect)
	assert.Empty(t, state.ReturnTo)
}

func TestFinalize_StateIsSingleUse(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{OAuthState: "st4te"}
	params := env.signedCallback("foo.myshopify.com", "st4te", nil)

	_, err := env.svc.Finalize(context.Background(), state, params)
	require.NoError(t, err)

	_, err = env.svc.Finalize(context.Background(), state, params)
	assert.ErrorIs(t, err, domain.ErrAntiForgeryMismatch)
	assert.Len(t, env.shopify.exchangedCodes, 1)
}

func TestFinalize_StateMismatchKeepsStoredToken(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{OAuthState: "st4te"}

	_, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "other", nil))

	assert.ErrorIs(t, err, domain.ErrAntiForgeryMismatch)
	assert.Equal(t, "st4te", state.OAuthState)
	assert.Empty(t, env.shopify.exchangedCodes)
}

func TestFinalize_NoStoredState(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Finalize(context.Background(), &domain.SessionState{}, env.signedCallback("foo.myshopify.com", "", nil))

	assert.ErrorIs(t, err, domain.ErrAntiForgeryMismatch)
}

func TestFinalize_AlteredHMAC(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{OAuthState: "st4te"}
	params := env.signedCallback("foo.myshopify.com", "st4te", nil)
	params["hmac"] = flipFirst(params["hmac"])

	_, err := env.svc.Finalize(context.Background(), state, params)

	assert.ErrorIs(t, err, domain.ErrSignatureVerification)
	assert.Nil(t, state.Shop)
	assert.Zero(t, env.repo.saves)
	assert.Empty(t, env.shopify.exchangedCodes)
}

func TestFinalize_TamperedValue(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{OAuthState: "st4te"}
	params := env.signedCallback("foo.myshopify.com", "st4te", map[string]string{"email": "owner@example.com"})
	params["email"] = "attacker@example.com"

	_, err := env.svc.Finalize(context.Background(), state, params)

	assert.ErrorIs(t, err, domain.ErrSignatureVerification)
	assert.Zero(t, env.repo.saves)
}

func TestFinalize_ExchangeFailure(t *testing.T) {
	env := newTestEnv()
	env.shopify.exchangeErr = errors.New("invalid code")
	state := &domain.SessionState{OAuthState: "st4te"}

	_, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "st4te", nil))

	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	assert.Contains(t, err.Error(), "invalid code")
	assert.Nil(t, state.Shop)
	assert.Zero(t, env.repo.saves)
}

func TestFinalize_SaveFailure(t *testing.T) {
	env := newTestEnv()
	env.repo.saveErr = errors.New("connection refused")
	state := &domain.SessionState{OAuthState: "st4te"}

	_, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "st4te", nil))

	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	assert.Nil(t, state.Shop)
}

func TestFinalize_ReactivatesExistingClient(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	state := &domain.SessionState{OAuthState: "first"}
	_, err := env.svc.Finalize(ctx, state, env.signedCallback("foo.myshopify.com", "first", map[string]string{
		"email":        "owner@example.com",
		"phone_number": "555-0100",
		"country":      "CA",
	}))
	require.NoError(t, err)

	stored, _ := env.repo.get("foo.myshopify.com")
	uninstalled := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	stored.Deactivate()
	stored.UninstallDate = &uninstalled
	stored.TrialUsed = true
	require.NoError(t, env.repo.Save(ctx, &stored))

	env.shopify.token = "tok456"
	state.OAuthState = "second"
	_, err = env.svc.Finalize(ctx, state, env.signedCallback("foo.myshopify.com", "second", map[string]string{
		"email": "new@example.com",
	}))
	require.NoError(t, err)

	assert.Len(t, env.repo.clients, 1)
	client, _ := env.repo.get("foo.myshopify.com")
	assert.Equal(t, "new@example.com", client.Email)
	assert.Equal(t, "555-0100", client.PhoneNumber)
	assert.Equal(t, "CA", client.Country)
	assert.Equal(t, "tok456", client.AccessToken)
	assert.True(t, client.IsActive)
	assert.Nil(t, client.UninstallDate)
	assert.False(t, client.TrialUsed)
	assert.Equal(t, "tok456", state.Shop.AccessToken)
}

func TestFinalize_FetchShopDetails(t *testing.T) {
	env := newTestEnv()
	env.svc.fetchShopDetails = true
	env.shopify.shop = &shopify.Shop{Email: "owner@example.com", Phone: "555-0100", CountryCode: "CA"}
	state := &domain.SessionState{OAuthState: "st4te"}

	_, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "st4te", map[string]string{"country": "US"}))
	require.NoError(t, err)

	client, _ := env.repo.get("foo.myshopify.com")
	assert.Equal(t, "owner@example.com", client.Email)
	assert.Equal(t, "555-0100", client.PhoneNumber)
	assert.Equal(t, "US", client.Country, "callback value wins over the shop API")
	assert.Equal(t, 1, env.shopify.shopCalls)
}

func TestFinalize_FetchShopDetailsFailureIsIgnored(t *testing.T) {
	env := newTestEnv()
	env.svc.fetchShopDetails = true
	env.shopify.shopErr = errors.New("throttled")
	state := &domain.SessionState{OAuthState: "st4te"}

	_, err := env.svc.Finalize(context.Background(), state, env.signedCallback("foo.myshopify.com", "st4te", nil))
	require.NoError(t, err)
	assert.NotNil(t, state.Shop)
}

func TestLogout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_, _, err := env.svc.UpsertClient(ctx, "foo.myshopify.com", domain.ClientDetails{}, "tok123")
	require.NoError(t, err)

	state := &domain.SessionState{Shop: &domain.ShopSession{ShopURL: "foo.myshopify.com", AccessToken: "tok123"}}
	require.NoError(t, env.svc.Logout(ctx, state))

	assert.Nil(t, state.Shop)
	client, _ := env.repo.get("foo.myshopify.com")
	assert.Empty(t, client.AccessToken)
	assert.False(t, client.IsActive)
}

func TestLogout_MissingClientIsNonFatal(t *testing.T) {
	env := newTestEnv()
	state := &domain.SessionState{Shop: &domain.ShopSession{ShopURL: "gone.myshopify.com", AccessToken: "stale"}}

	err := env.svc.Logout(context.Background(), state)

	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	assert.True(t, IsNonFatal(err))
	assert.Nil(t, state.Shop)
	assert.Zero(t, env.repo.saves)
}

func TestLogout_WithoutShopSession(t *testing.T) {
	env := newTestEnv()

	assert.NoError(t, env.svc.Logout(context.Background(), &domain.SessionState{}))
}

func TestLogout_RepositoryFailureStillClearsSession(t *testing.T) {
	env := newTestEnv()
	env.repo.getErr = errors.New("timeout")
	state := &domain.SessionState{Shop: &domain.ShopSession{ShopURL: "foo.myshopify.com"}}

	err := env.svc.Logout(context.Background(), state)

	assert.Error(t, err)
	assert.False(t, IsNonFatal(err))
	assert.Nil(t, state.Shop)
}

func TestMarkUninstalled(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }
	_, _, err := env.svc.UpsertClient(ctx, "foo.myshopify.com", domain.ClientDetails{}, "tok123")
	require.NoError(t, err)

	require.NoError(t, env.svc.MarkUninstalled(ctx, "foo.myshopify.com"))

	client, _ := env.repo.get("foo.myshopify.com")
	assert.False(t, client.IsActive)
	assert.Empty(t, client.AccessToken)
	require.NotNil(t, client.UninstallDate)
	assert.True(t, client.UninstallDate.Equal(now))

	assert.ErrorIs(t, env.svc.MarkUninstalled(ctx, "other.myshopify.com"), domain.ErrClientNotFound)
}

func flipFirst(s string) string {
	if strings.HasPrefix(s, "a") {
		return "b" + s[1:]
	}
	return "a" + s[1:]
}
