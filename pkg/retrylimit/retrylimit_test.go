package retrylimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestRetryableStatusCodes(t *testing.T) {
	assert.True(t, Retryable(restError(http.StatusTooManyRequests)))
	assert.True(t, Retryable(restError(http.StatusBadGateway)))
	assert.False(t, Retryable(restError(http.StatusNotFound)))
	assert.False(t, Retryable(restError(http.StatusForbidden)))
	assert.False(t, Retryable(errors.New("plain")))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestDoStopsOnFinalError(t *testing.T) {
	calls := 0
	err := DoConfig(context.Background(), func() error {
		calls++
		return restError(http.StatusNotFound)
	}, nil, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestDoRetriesThrottling(t *testing.T) {
	calls := 0
	lim := NewAdaptiveLimiter(50, 1, 50, 1, 0.5)
	err := DoConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return restError(http.StatusTooManyRequests)
		}
		return nil
	}, lim, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Less(t, lim.Limit(), 50.0)
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	err := DoConfig(context.Background(), func() error {
		calls++
		return restError(http.StatusInternalServerError)
	}, nil, fastConfig())

	require.Error(t, err)
	assert.Equal(t, DefaultConfig().MaxAttempts, calls)
	assert.Contains(t, err.Error(), "gave up")
}

func TestLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 2, 8, 1, 0.1)
	lim.Throttled()
	assert.Equal(t, 2.0, lim.Limit())

	lim.lastError = time.Time{}
	for i := 0; i < 20; i++ {
		lim.Success()
	}
	assert.Equal(t, 8.0, lim.Limit())
}
