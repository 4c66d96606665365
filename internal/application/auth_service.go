package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"shopify-app-auth/internal/domain"
	"shopify-app-auth/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultReturnPath is where a successful login lands when no return path was stored
const DefaultReturnPath = "/"

// stateTokenBytes is the entropy of the anti-forgery token before hex encoding
const stateTokenBytes = 15

// AuthService drives the Shopify install/login flow.
// Session state is passed in explicitly and mutated in place; callers persist it.
type AuthService struct {
	clients          ports.ClientRepository
	shopifyClient    ports.ShopifyClient
	verifier         ports.CallbackVerifier
	scopes           []string
	fetchShopDetails bool
	logger           zerolog.Logger

	now    func() time.Time
	random io.Reader
}

// AuthServiceOptions configures optional behavior of the AuthService
type AuthServiceOptions struct {
	Scopes []string
	// FetchShopDetails fills contact fields missing from the callback using the Shop API
	FetchShopDetails bool
}

// NewAuthService creates a new auth application service
func NewAuthService(
	clients ports.ClientRepository,
	shopifyClient ports.ShopifyClient,
	verifier ports.CallbackVerifier,
	opts AuthServiceOptions,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		clients:          clients,
		shopifyClient:    shopifyClient,
		verifier:         verifier,
		scopes:           opts.Scopes,
		fetchShopDetails: opts.FetchShopDetails,
		logger:           logger,
		now:              time.Now,
		random:           rand.Reader,
	}
}

// BeginAuth stores a fresh anti-forgery token in state and returns the Shopify permission URL.
func (s *AuthService) BeginAuth(state *domain.SessionState, shop string, redirectURI string) (string, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return "", domain.ErrMissingShop
	}

	token, err := s.newStateToken()
	if err != nil {
		return "", err
	}
	state.OAuthState = token

	authURL, err := s.shopifyClient.GenerateAuthURL(shop, s.scopes, redirectURI, token)
	if err != nil {
		return "", fmt.Errorf("failed to generate auth URL: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Strs("scopes", s.scopes).
		Msg("Redirecting shop to permission screen")

	return authURL, nil
}

// VerifyCallback checks the anti-forgery token, consuming it on match, then the hmac signature.
// A mismatched token is left in place.
func (s *AuthService) VerifyCallback(state *domain.SessionState, params map[string]string) error {
	stored := state.OAuthState
	given := params["state"]
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(given)) != 1 {
		return domain.ErrAntiForgeryMismatch
	}
	state.OAuthState = ""

	if err := s.verifier.Verify(params); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSignatureVerification, err)
	}
	return nil
}

// Finalize completes the callback: verification, token exchange, client upsert and session write.
// It returns the path to redirect to.
func (s *AuthService) Finalize(ctx context.Context, state *domain.SessionState, params map[string]string) (string, error) {
	if err := s.VerifyCallback(state, params); err != nil {
		return "", err
	}

	shop := params["shop"]
	accessToken, err := s.shopifyClient.ExchangeToken(ctx, shop, params["code"])
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return "", fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}

	details := domain.ClientDetailsFromParams(params)
	if s.fetchShopDetails {
		details = s.fillShopDetails(ctx, shop, accessToken, details)
	}

	client, created, err := s.UpsertClient(ctx, shop, details, accessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save client")
		return "", fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}

	state.Shop = &domain.ShopSession{
		ShopURL:     client.ShopURL,
		AccessToken: accessToken,
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("created", created).
		Msg("Shop logged in")

	return state.PopReturnTo(DefaultReturnPath), nil
}

// UpsertClient creates the client for shop or reactivates the existing one.
func (s *AuthService) UpsertClient(ctx context.Context, shop string, details domain.ClientDetails, accessToken string) (*domain.Client, bool, error) {
	client, err := s.clients.GetByShopName(ctx, shop)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load client: %w", err)
	}

	created := client == nil
	if created {
		client = domain.NewClient(shop, details, accessToken)
	} else {
		client.Reactivate(shop, details, accessToken)
	}

	if err := s.clients.Save(ctx, client); err != nil {
		return nil, false, fmt.Errorf("failed to save client: %w", err)
	}
	return client, created, nil
}

// Logout removes the shop context from state and deactivates the stored client.
// A shop without a stored client yields ErrClientNotFound, which callers treat as non-fatal.
func (s *AuthService) Logout(ctx context.Context, state *domain.SessionState) error {
	if !state.IsAuthenticated() {
		s.logger.Info().Msg("Logout requested without a shop session")
		state.Shop = nil
		return nil
	}

	shop := state.Shop.ShopURL
	state.Shop = nil

	client, err := s.clients.GetByShopName(ctx, shop)
	if err != nil {
		return fmt.Errorf("failed to load client: %w", err)
	}
	if client == nil {
		s.logger.Warn().Str("shop", shop).Msg("Logout for shop without a stored client")
		return domain.ErrClientNotFound
	}

	client.Deactivate()
	if err := s.clients.Save(ctx, client); err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}

	s.logger.Info().Str("shop", shop).Msg("Shop logged out")
	return nil
}

// MarkUninstalled deactivates the client of shop and records the uninstall time.
func (s *AuthService) MarkUninstalled(ctx context.Context, shop string) error {
	client, err := s.clients.GetByShopName(ctx, shop)
	if err != nil {
		return fmt.Errorf("failed to load client: %w", err)
	}
	if client == nil {
		return domain.ErrClientNotFound
	}

	client.MarkUninstalled(s.now().UTC())
	if err := s.clients.Save(ctx, client); err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

func (s *AuthService) fillShopDetails(ctx context.Context, shop, accessToken string, details domain.ClientDetails) domain.ClientDetails {
	if details.Email != nil && details.PhoneNumber != nil && details.Country != nil {
		return details
	}

	info, err := s.shopifyClient.GetShop(ctx, shop, accessToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch shop details, keeping callback values")
		return details
	}

	if details.Email == nil && info.Email != "" {
		details.Email = &info.Email
	}
	if details.PhoneNumber == nil && info.Phone != "" {
		details.PhoneNumber = &info.Phone
	}
	if details.Country == nil && info.CountryCode != "" {
		details.Country = &info.CountryCode
	}
	return details
}

func (s *AuthService) newStateToken() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsNonFatal reports errors that must not interrupt the request.
func IsNonFatal(err error) bool {
	return errors.Is(err, domain.ErrClientNotFound)
}
