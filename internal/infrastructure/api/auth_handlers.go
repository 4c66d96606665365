package api

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"shopify-app-auth/internal/application"
	"shopify-app-auth/internal/domain"
	"shopify-app-auth/internal/infrastructure/metrics"
	"shopify-app-auth/internal/infrastructure/session"

	"github.com/rs/zerolog"
)

const (
	msgLoggedIn  = "Logged in to Shopify store."
	msgLoggedOut = "Successfully logged out."
	msgLoginErr  = "Could not log in to Shopify store. Error: "
)

// AuthHandlers serves the login, callback and logout pages
type AuthHandlers struct {
	auth      *application.AuthService
	sessions  *session.Manager
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	appURL    string
	templates *template.Template
}

// NewAuthHandlers creates the login flow handlers. appURL is the absolute base URL Shopify redirects back to.
func NewAuthHandlers(
	auth *application.AuthService,
	sessions *session.Manager,
	m *metrics.Metrics,
	logger zerolog.Logger,
	appURL string,
) *AuthHandlers {
	return &AuthHandlers{
		auth:      auth,
		sessions:  sessions,
		metrics:   m,
		logger:    logger,
		appURL:    strings.TrimRight(appURL, "/"),
		templates: pageTemplates,
	}
}

// Login renders the login form, or starts the flow right away when a shop is given
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("shop") != "" {
		h.Authenticate(w, r)
		return
	}

	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	messages := sess.State.PopMessages()
	if !h.saveSession(w, r, sess) {
		return
	}

	h.render(w, "login.html", pageData{Messages: messages})
}

// Authenticate redirects the merchant to the Shopify permission screen
func (h *AuthHandlers) Authenticate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	// FormValue reads the query string first, then the posted form
	shop := r.FormValue("shop")
	authURL, err := h.auth.BeginAuth(sess.State, shop, h.appURL+"/finalize")
	if err != nil {
		if errors.Is(err, domain.ErrMissingShop) {
			h.metrics.RecordOAuth("authenticate", "missing_shop")
			sess.State.AddMessage(domain.MessageError, "A shop param is required")
			h.redirect(w, r, sess, "/login")
			return
		}
		h.metrics.RecordOAuth("authenticate", "error")
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to start OAuth flow")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordOAuth("authenticate", "redirected")
	h.redirect(w, r, sess, authURL)
}

// Finalize handles the OAuth callback from Shopify
func (h *AuthHandlers) Finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	params := queryParams(r)
	target, err := h.auth.Finalize(r.Context(), sess.State, params)
	if err != nil {
		outcome, text := finalizeFailure(err)
		h.metrics.RecordOAuth("finalize", outcome)
		h.logger.Warn().
			Err(err).
			Str("shop", params["shop"]).
			Str("request_id", requestID(r)).
			Msg("OAuth callback rejected")
		sess.State.AddMessage(domain.MessageError, text)
		h.redirect(w, r, sess, "/login")
		return
	}

	if err := h.sessions.Renew(r.Context(), sess); err != nil {
		h.logger.Error().Err(err).Msg("Failed to renew session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordOAuth("finalize", "success")
	sess.State.AddMessage(domain.MessageInfo, msgLoggedIn)
	h.redirect(w, r, sess, target)
}

// Logout deactivates the shop's client and clears the session shop context
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	err := h.auth.Logout(r.Context(), sess.State)
	switch {
	case err == nil:
		h.metrics.RecordOAuth("logout", "success")
		sess.State.AddMessage(domain.MessageInfo, msgLoggedOut)
	case application.IsNonFatal(err):
		h.metrics.RecordOAuth("logout", "client_missing")
	default:
		h.metrics.RecordOAuth("logout", "error")
		h.logger.Error().Err(err).Msg("Failed to deactivate client on logout")
	}

	h.redirect(w, r, sess, "/login")
}

// Index is the landing page of a logged-in shop
func (h *AuthHandlers) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	messages := sess.State.PopMessages()
	if !h.saveSession(w, r, sess) {
		return
	}

	h.render(w, "index.html", pageData{Shop: sess.State.Shop.ShopURL, Messages: messages})
}

// RequireShop redirects requests without a logged-in shop to /login, remembering where they were headed
func (h *AuthHandlers) RequireShop(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.loadSession(w, r)
		if !ok {
			return
		}
		if !sess.State.IsAuthenticated() {
			if r.Method == http.MethodGet {
				sess.State.ReturnTo = r.URL.RequestURI()
			}
			h.redirect(w, r, sess, "/login")
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func (h *AuthHandlers) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if sess := sessionFromContext(r.Context()); sess != nil {
		return sess, true
	}
	sess, err := h.sessions.Load(r)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (h *AuthHandlers) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *AuthHandlers) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, target string) {
	if !h.saveSession(w, r, sess) {
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandlers) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("Failed to render page")
	}
}

// finalizeFailure maps a callback error to a metrics outcome and the flash text shown to the merchant
func finalizeFailure(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrAntiForgeryMismatch):
		return "state_mismatch", "Anti-forgery state token does not match the initial request."
	case errors.Is(err, domain.ErrSignatureVerification):
		return "invalid_signature", "Could not verify a secure login"
	default:
		cause := strings.TrimPrefix(err.Error(), domain.ErrAuthenticationFailed.Error()+": ")
		return "failed", msgLoginErr + cause
	}
}

// queryParams flattens the query string, keeping the first value of each key
func queryParams(r *http.Request) map[string]string {
	query := r.URL.Query()
	params := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
