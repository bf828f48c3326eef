package domain

import "time"

// DefaultSessionTTL is how long a token is trusted after login.
const DefaultSessionTTL = 24 * time.Hour

// Session is the persisted authentication state.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session carries a token that is unexpired at now.
func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// Claims is the unverified identity decoded from a session token.
type Claims struct {
	Subject   string         `json:"sub"`
	ExpiresAt time.Time      `json:"exp"`
	IssuedAt  time.Time      `json:"iat"`
	Extra     map[string]any `json:"-"`
}

// Token is the login response of the service.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
