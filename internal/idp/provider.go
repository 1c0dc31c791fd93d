package idp

import (
	"context"

	"golang.org/x/oauth2"
)

// UserInfo represents user information from the identity provider.
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider abstracts identity provider operations so handlers and tests can
// substitute a fake without touching the network.
type Provider interface {
	// AuthURL builds the authorization redirect URL carrying the CSRF
	// state, the nonce, and the S256 PKCE challenge.
	AuthURL(state, nonce, challenge string) string

	// Exchange trades an authorization code plus the PKCE verifier for
	// tokens.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// UserInfo fetches the identity behind an access token.
	UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}
