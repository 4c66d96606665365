package ports

// CallbackVerifier checks the signature of OAuth callback parameters
type CallbackVerifier interface {
	Verify(params map[string]string) error
}
