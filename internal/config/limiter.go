package config

// RateLimiter contains configuration for admin API request rate limiting.
type RateLimiter struct {
	Rps     float64
	Burst   int
	Enabled bool
}
