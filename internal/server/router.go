package server

import (
	"net/http"

	"github.com/helsa/authfront/internal/config"
)

// NewRouter wires the auth endpoints and health check behind the standard
// middleware chain.
func NewRouter(cfg config.Config, handlers *AuthHandlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", handlers.LoginHandler)
	mux.HandleFunc("/auth/callback", handlers.CallbackHandler)
	mux.HandleFunc("/auth/session", handlers.SessionHandler)
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)
	mux.Handle("/health", NewHealthHandler())

	return ChainMiddleware(mux,
		NewCORSMiddleware(cfg.AllowedOrigins),
		NewRecoverMiddleware("server"),
		NewLoggerMiddleware("server"),
		NewRequestIDMiddleware(),
	)
}
