package cookie

import (
	"net/http"
	"time"

	"github.com/helsa/authfront/internal/log"
)

// Cookie names used by the auth flow
const (
	TransactionCookie = "oauth_state"
	SessionCookie     = "session"
)

// Lifetimes of the two cookies
const (
	TransactionMaxAge = 10 * time.Minute
	SessionMaxAge     = 7 * 24 * time.Hour
)

func set(w http.ResponseWriter, name, value string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// SetTransaction stores the encrypted OAuth transaction state for the
// duration of the login round-trip.
func SetTransaction(w http.ResponseWriter, value string, secure bool) {
	set(w, TransactionCookie, value, TransactionMaxAge, secure)

	log.LogTraceWithFields("cookie", "Transaction cookie set", map[string]any{
		"maxAge": TransactionMaxAge.String(),
		"secure": secure,
	})
}

// SetSession stores the signed session token.
func SetSession(w http.ResponseWriter, value string, secure bool) {
	set(w, SessionCookie, value, SessionMaxAge, secure)

	log.LogTraceWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge": SessionMaxAge.String(),
		"secure": secure,
	})
}

// Clear removes a cookie
func Clear(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// ClearTransaction removes the transaction cookie
func ClearTransaction(w http.ResponseWriter, secure bool) {
	Clear(w, TransactionCookie, secure)
}

// ClearSession removes the session cookie
func ClearSession(w http.ResponseWriter, secure bool) {
	Clear(w, SessionCookie, secure)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// GetTransaction retrieves the transaction cookie value
func GetTransaction(r *http.Request) (string, error) {
	return Get(r, TransactionCookie)
}

// GetSession retrieves the session cookie value
func GetSession(r *http.Request) (string, error) {
	return Get(r, SessionCookie)
}
