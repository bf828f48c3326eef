package ports

import "net/http"

// SessionSource is what the dispatcher needs from the session store.
type SessionSource interface {
	Token() string
	AuthHeader() http.Header
	// Expire ends the session if token is still the active one and reports whether it did.
	Expire(token string) bool
}
