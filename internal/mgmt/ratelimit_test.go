package mgmt

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 1, Burst: 2})

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	// Separate bucket per client
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 5})
	rl.Allow("a")
	rl.Allow("b")

	assert.Equal(t, 0, rl.Prune(time.Now()))
	assert.Equal(t, 2, rl.Prune(time.Now().Add(11*time.Minute)))
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	env := newTestEnv(t, ServerConfig{
		AuthConfig: AuthConfig{Mode: AuthModeNone},
		RateLimit:  RateLimitConfig{RPS: 1, Burst: 1},
	})

	resp := do(t, env.app, "GET", "/api/v1/runs", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, env.app, "GET", "/api/v1/runs", "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", decodeProblem(t, resp).Type)

	// Probes are never limited
	resp = do(t, env.app, "GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
