package domain

import "errors"

var (
	// ErrMissingShop is returned when the login flow starts without a shop.
	ErrMissingShop = errors.New("a shop param is required")

	// ErrAntiForgeryMismatch is returned when the callback state does not match the stored token.
	ErrAntiForgeryMismatch = errors.New("anti-forgery state token does not match the initial request")

	// ErrSignatureVerification is returned when the callback hmac does not match.
	ErrSignatureVerification = errors.New("could not verify a secure login")

	// ErrAuthenticationFailed wraps token exchange and persistence failures of the callback.
	ErrAuthenticationFailed = errors.New("could not log in to shopify store")

	// ErrClientNotFound is reported when a shop in session has no stored client. It is never fatal.
	ErrClientNotFound = errors.New("client does not exist")
)
