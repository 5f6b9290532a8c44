package server

import "github.com/nichefinder/nichefinder/internal/store"

// HTTPError is the error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// MeResponse returns the current authenticated user id.
type MeResponse struct {
	UserID string `json:"user_id"`
}

// SearchRequest represents a niche search payload.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse is the outcome of a search-and-analyze call.
type SearchResponse struct {
	SearchID         string      `json:"search_id"`
	Niche            store.Niche `json:"niche"`
	CacheHit         bool        `json:"cache_hit"`
	CreditsRemaining *int        `json:"credits_remaining,omitempty"`
}

// Plan describes one subscription tier. Searches of -1 means unlimited.
type Plan struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"price_usd"`
	Searches     int     `json:"searches"`
	SearchPeriod string  `json:"search_period"`
	Description  string  `json:"description,omitempty"`
}
