package domain

// ShopSession is the authenticated shop context stored in a browser session.
type ShopSession struct {
	ShopURL     string `json:"shop_url"`
	AccessToken string `json:"access_token"`
}

// MessageLevel is the severity of a flash message.
type MessageLevel string

const (
	MessageInfo  MessageLevel = "info"
	MessageError MessageLevel = "error"
)

// FlashMessage is a one-shot message shown on the next rendered page.
type FlashMessage struct {
	Level MessageLevel `json:"level"`
	Text  string       `json:"text"`
}

// SessionState is the per-browser state shared by the login flow handlers.
type SessionState struct {
	OAuthState string         `json:"oauth_state_param,omitempty"`
	Shop       *ShopSession   `json:"shopify,omitempty"`
	ReturnTo   string         `json:"return_to,omitempty"`
	Messages   []FlashMessage `json:"messages,omitempty"`
}

// AddMessage queues a flash message.
func (s *SessionState) AddMessage(level MessageLevel, text string) {
	s.Messages = append(s.Messages, FlashMessage{Level: level, Text: text})
}

// PopMessages returns and clears the queued flash messages.
func (s *SessionState) PopMessages() []FlashMessage {
	msgs := s.Messages
	s.Messages = nil
	return msgs
}

// PopReturnTo returns the stored return path, or fallback, and clears it.
func (s *SessionState) PopReturnTo(fallback string) string {
	returnTo := s.ReturnTo
	s.ReturnTo = ""
	if returnTo == "" {
		return fallback
	}
	return returnTo
}

// IsAuthenticated reports whether a shop context is present.
func (s *SessionState) IsAuthenticated() bool {
	return s.Shop != nil && s.Shop.ShopURL != ""
}
