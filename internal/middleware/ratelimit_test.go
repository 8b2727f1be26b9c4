package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitKeySeparatesLimiters(t *testing.T) {
	login := rateLimitKey("login", "203.0.113.7")
	messages := rateLimitKey("messages", "203.0.113.7")

	assert.Equal(t, "ratelimit:login:203.0.113.7", login)
	assert.Equal(t, "ratelimit:messages:203.0.113.7", messages)
	assert.NotEqual(t, login, messages)

	// Same limiter, different clients.
	assert.NotEqual(t, rateLimitKey("login", "203.0.113.7"), rateLimitKey("login", "203.0.113.8"))
}
