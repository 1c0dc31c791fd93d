package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleConfig configures the Google provider. Endpoint and UserInfoURL
// default to Google's production endpoints; tests point them at httptest
// servers.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
}

// GoogleProvider implements Provider for Google OAuth with PKCE.
type GoogleProvider struct {
	config      oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a Google OAuth provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}

	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthURL generates the authorization URL.
func (p *GoogleProvider) AuthURL(state, nonce, challenge string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange trades the authorization code for tokens, proving possession of
// the PKCE verifier generated at login.
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// UserInfo fetches the user's identity from the OIDC userinfo endpoint.
func (p *GoogleProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &info, nil
}
