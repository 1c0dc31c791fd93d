package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/helsa/authfront/internal/config"
	"github.com/helsa/authfront/internal/cookie"
	"github.com/helsa/authfront/internal/crypto"
	"github.com/helsa/authfront/internal/idp"
	jsonwriter "github.com/helsa/authfront/internal/json"
	"github.com/helsa/authfront/internal/log"
	"github.com/helsa/authfront/internal/ratelimit"
	"github.com/helsa/authfront/internal/session"
)

const (
	loginEndpoint    = "auth:login"
	callbackEndpoint = "auth:callback"

	loginLimit    = 10
	callbackLimit = 20

	landingRoute     = "/dashboard"
	oauthDeniedRoute = "/?error=oauth_denied"
	authFailedRoute  = "/?error=auth_failed"
	exchangeTimeout  = 30 * time.Second
)

// AuthHandlers provides the login, callback, session and logout handlers
// with dependency injection.
type AuthHandlers struct {
	cfg      config.Config
	provider idp.Provider
	limiter  *ratelimit.Limiter
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(cfg config.Config, provider idp.Provider, limiter *ratelimit.Limiter) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		provider: provider,
		limiter:  limiter,
	}
}

// writeRateLimitHeaders emits the standard headers for an enforced decision.
// Nothing is emitted when the limiter is failing open, so clients can tell
// enforcement apart from absence.
func writeRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	if !res.Enforced() {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
}

func retryAfterSeconds(res ratelimit.Result) int64 {
	secs := int64(time.Until(res.Reset).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// checkRateLimit applies the gate and writes the 429 when exceeded. It
// returns false when the request must not proceed.
func (h *AuthHandlers) checkRateLimit(w http.ResponseWriter, r *http.Request, endpoint string, limit int) bool {
	res := h.limiter.Check(r.Context(), ratelimit.ClientIP(r), endpoint, limit)
	writeRateLimitHeaders(w, res)
	if res.Allowed {
		return true
	}

	log.LogInfoWithFields("auth", "Rate limit exceeded", map[string]any{
		"endpoint": endpoint,
		"ip":       ratelimit.ClientIP(r),
	})
	jsonwriter.WriteTooManyRequests(w, retryAfterSeconds(res))
	return false
}

// LoginHandler starts the OAuth flow: generates PKCE material and the
// state/nonce pair, seals them into the transaction cookie, and redirects to
// the provider's authorization endpoint.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w, http.MethodGet)
		return
	}

	if !h.checkRateLimit(w, r, loginEndpoint, loginLimit) {
		return
	}

	// Missing secrets are a deployment defect, never a silent degrade.
	if h.cfg.GoogleClientID == "" || len(h.cfg.SharedSecret) < config.MinSecretLen {
		log.LogErrorWithFields("auth", "OAuth login misconfigured", map[string]any{
			"clientIdSet":  h.cfg.GoogleClientID != "",
			"secretLength": len(h.cfg.SharedSecret),
		})
		jsonwriter.WriteInternalServerError(w, "Server configuration error")
		return
	}

	verifier, err := crypto.GenerateCodeVerifier()
	if err != nil {
		log.LogError("Failed to generate code verifier: %v", err)
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	state, err := crypto.GenerateStateToken()
	if err != nil {
		log.LogError("Failed to generate state: %v", err)
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	// The nonce is generated and sent to the provider but never verified
	// against an ID-token claim: this flow exchanges the code for an
	// access token only. Kept so ID-token verification is a local change.
	nonce, err := crypto.GenerateStateToken()
	if err != nil {
		log.LogError("Failed to generate nonce: %v", err)
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	sealed, err := crypto.SealTransaction(string(h.cfg.SharedSecret), &crypto.Transaction{
		CodeVerifier: verifier,
		State:        state,
		Nonce:        nonce,
	})
	if err != nil {
		log.LogError("Failed to seal transaction state: %v", err)
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	cookie.SetTransaction(w, sealed, h.cfg.Production)

	authURL := h.provider.AuthURL(state, nonce, crypto.CodeChallenge(verifier))

	log.LogDebugWithFields("auth", "Starting OAuth flow", map[string]any{
		"ip": ratelimit.ClientIP(r),
	})

	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler completes the OAuth flow: validates state against the
// decrypted transaction cookie, exchanges the code with the PKCE verifier,
// fetches the identity, and issues the session cookie.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	// The callback must never surface a stack trace or raw error to the
	// browser; anything unexpected becomes a generic redirect.
	defer func() {
		if rec := recover(); rec != nil {
			log.LogErrorWithFields("auth", "Recovered from panic in callback", map[string]any{
				"panic": rec,
			})
			http.Redirect(w, r, authFailedRoute, http.StatusFound)
		}
	}()

	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w, http.MethodGet)
		return
	}

	if !h.checkRateLimit(w, r, callbackEndpoint, callbackLimit) {
		return
	}

	query := r.URL.Query()

	// User-facing OAuth outcomes redirect; malformed requests get status
	// codes instead.
	if errParam := query.Get("error"); errParam != "" {
		log.LogInfoWithFields("auth", "Provider declined authorization", map[string]any{
			"error": errParam,
		})
		http.Redirect(w, r, oauthDeniedRoute, http.StatusFound)
		return
	}

	code := query.Get("code")
	if code == "" {
		jsonwriter.WriteBadRequest(w, "Missing authorization code")
		return
	}

	sealed, err := cookie.GetTransaction(r)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Session expired, restart login")
		return
	}

	if len(h.cfg.SharedSecret) < config.MinSecretLen {
		log.LogErrorWithFields("auth", "OAuth callback misconfigured", map[string]any{
			"secretLength": len(h.cfg.SharedSecret),
		})
		jsonwriter.WriteInternalServerError(w, "Server configuration error")
		return
	}

	tx := crypto.OpenTransaction(string(h.cfg.SharedSecret), sealed)
	if tx == nil {
		log.LogDebug("Transaction cookie failed to decrypt")
		cookie.ClearTransaction(w, h.cfg.Production)
		jsonwriter.WriteBadRequest(w, "Invalid session")
		return
	}

	if !crypto.ConstantTimeEqual(query.Get("state"), tx.State) {
		log.LogWarnWithFields("auth", "State mismatch on callback", map[string]any{
			"ip": ratelimit.ClientIP(r),
		})
		cookie.ClearTransaction(w, h.cfg.Production)
		jsonwriter.WriteBadRequest(w, "Security validation failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	token, err := h.provider.Exchange(ctx, code, tx.CodeVerifier)
	if err != nil {
		// Keep provider error bodies out of logs and responses.
		log.LogErrorWithFields("auth", "Token exchange failed", map[string]any{
			"error": err.Error(),
		})
		cookie.ClearTransaction(w, h.cfg.Production)
		jsonwriter.WriteBadRequest(w, "Authentication failed")
		return
	}

	info, err := h.provider.UserInfo(ctx, token)
	if err != nil {
		log.LogErrorWithFields("auth", "User info fetch failed", map[string]any{
			"error": err.Error(),
		})
		cookie.ClearTransaction(w, h.cfg.Production)
		jsonwriter.WriteBadRequest(w, "Failed to retrieve user information")
		return
	}

	// Unverified third-party emails are never trusted for session issuance.
	if !info.EmailVerified {
		log.LogInfoWithFields("auth", "Rejected unverified email", map[string]any{
			"sub": info.Subject,
		})
		cookie.ClearTransaction(w, h.cfg.Production)
		jsonwriter.WriteForbidden(w, "Email not verified")
		return
	}

	sessionToken, err := session.Issue(string(h.cfg.SharedSecret), session.User{
		Sub:           info.Subject,
		Email:         info.Email,
		Name:          info.Name,
		Picture:       info.Picture,
		EmailVerified: info.EmailVerified,
	})
	if err != nil {
		log.LogError("Failed to issue session token: %v", err)
		cookie.ClearTransaction(w, h.cfg.Production)
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	cookie.ClearTransaction(w, h.cfg.Production)
	cookie.SetSession(w, sessionToken, h.cfg.Production)

	log.LogInfoWithFields("auth", "Login completed", map[string]any{
		"sub": info.Subject,
	})

	http.Redirect(w, r, landingRoute, http.StatusFound)
}

// SessionHandler reports the identity behind the session cookie. Missing
// cookie and failed verification both answer 401 with a null user, so "not
// logged in" is a normal state for the frontend, not an error.
func (h *AuthHandlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w, http.MethodGet)
		return
	}

	value, err := cookie.GetSession(r)
	if err != nil {
		jsonwriter.WriteNullUser(w)
		return
	}

	user, err := session.Verify(string(h.cfg.SharedSecret), value)
	if err != nil {
		jsonwriter.WriteNullUser(w)
		return
	}

	_ = jsonwriter.Write(w, map[string]any{"user": user})
}

// LogoutHandler clears the session cookie. It never fails based on whether a
// session existed.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteMethodNotAllowed(w, http.MethodPost)
		return
	}

	cookie.ClearSession(w, h.cfg.Production)
	_ = jsonwriter.Write(w, map[string]any{"success": true})
}
