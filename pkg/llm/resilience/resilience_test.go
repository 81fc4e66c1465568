package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/legalens/pkg/llm"
	"github.com/kart-io/legalens/pkg/utils/httpclient"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     attempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2,
		RetryableErrors: IsRetryableError,
	}
}

func TestCircuitBreaker_OpenOnMaxFailures(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      3,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
		OnStateChange: func(from, to CircuitBreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(func() error { return testErr }))
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)
	assert.Equal(t, []string{"closed->open"}, transitions)
	assert.Equal(t, 3, cb.Stats().Failures)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      1,
		Timeout:          20 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      1,
		Timeout:          20 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(30 * time.Millisecond)
	_ = cb.Execute(func() error { return errors.New("still broken") })

	assert.Equal(t, StateOpen, cb.State())
	cb.Reset()
	assert.Equal(t, "closed", cb.Stats().State)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	var attempts int
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		attempts++
		if attempts < 3 {
			return &httpclient.StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_MaxAttemptsReached(t *testing.T) {
	var attempts int
	err := RetryWithBackoff(context.Background(), fastRetry(2), func() error {
		attempts++
		return &httpclient.StatusError{StatusCode: http.StatusTooManyRequests}
	})

	assert.ErrorContains(t, err, "max retry attempts (2) reached")
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_NonRetryableError(t *testing.T) {
	var attempts int
	err := RetryWithBackoff(context.Background(), fastRetry(5), func() error {
		attempts++
		return &httpclient.StatusError{StatusCode: http.StatusBadRequest}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(10)
	cfg.InitialDelay = time.Second

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := RetryWithBackoff(ctx, cfg, func() error {
		return &httpclient.StatusError{StatusCode: http.StatusBadGateway}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"5xx", &httpclient.StatusError{StatusCode: 502}, true},
		{"wrapped 429", fmt.Errorf("gemini: %w", &httpclient.StatusError{StatusCode: 429}), true},
		{"408", &httpclient.StatusError{StatusCode: 408}, true},
		{"401", &httpclient.StatusError{StatusCode: 401}, false},
		{"breaker open", ErrCircuitBreakerOpen, false},
		{"deadline", context.DeadlineExceeded, false},
		{"eof", errors.New("unexpected EOF"), true},
		{"plain", errors.New("bad json"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

type flakyChat struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyChat) Name() string { return "flaky" }

func (f *flakyChat) Chat(context.Context, []llm.Message) (string, error) {
	return "", errors.New("unused")
}

func (f *flakyChat) Generate(context.Context, string, string) (*llm.GenerateResponse, error) {
	if f.calls.Add(1) <= f.failures.Load() {
		return nil, &httpclient.StatusError{StatusCode: http.StatusInternalServerError}
	}
	return &llm.GenerateResponse{Content: "ok"}, nil
}

type flakyToolChat struct{ flakyChat }

func (f *flakyToolChat) GenerateWithTools(context.Context, string, []llm.Tool) (*llm.GenerateResponse, error) {
	return &llm.GenerateResponse{ToolCalls: []llm.ToolCall{{Name: "search_web"}}}, nil
}

func TestResilientChatProviderRetries(t *testing.T) {
	inner := &flakyChat{}
	inner.failures.Store(2)
	p := NewResilientChatProvider(inner, fastRetry(3), nil)

	resp, err := p.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, "flaky-resilient", p.Name())
	assert.Equal(t, StateClosed, p.CircuitBreaker().State())
}

func TestResilientChatProviderTools(t *testing.T) {
	plain := NewResilientChatProvider(&flakyChat{}, fastRetry(1), nil)
	_, err := plain.GenerateWithTools(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrToolsUnsupported)

	withTools := NewResilientChatProvider(&flakyToolChat{}, fastRetry(1), nil)
	resp, err := withTools.GenerateWithTools(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.True(t, resp.HasToolCalls())
}

type staticEmbedder struct{ calls atomic.Int32 }

func (s *staticEmbedder) Name() string { return "static" }

func (s *staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	return make([][]float32, len(texts)), nil
}

func (s *staticEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	s.calls.Add(1)
	return nil, &httpclient.StatusError{StatusCode: http.StatusServiceUnavailable}
}

func TestResilientEmbeddingProviderOpensBreaker(t *testing.T) {
	inner := &staticEmbedder{}
	p := NewResilientEmbeddingProvider(inner, fastRetry(1), &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 1,
	})

	for i := 0; i < 2; i++ {
		_, err := p.EmbedSingle(context.Background(), "x")
		assert.Error(t, err)
	}
	_, err := p.EmbedSingle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestRetryConfig_Backoff(t *testing.T) {
	c := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}

	assert.Equal(t, 100*time.Millisecond, c.Backoff(1))
	assert.Equal(t, 300*time.Millisecond, c.Backoff(2))
	assert.Equal(t, 900*time.Millisecond, c.Backoff(3))
	assert.Equal(t, time.Second, c.Backoff(4))
	assert.Equal(t, time.Second, c.Backoff(40))
}

func TestRetryConfig_JitterShortensWait(t *testing.T) {
	c := &RetryConfig{InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2, Jitter: 0.5}
	for i := 0; i < 50; i++ {
		d := c.wait(1)
		assert.LessOrEqual(t, d, time.Second)
		assert.Greater(t, d, 500*time.Millisecond-time.Nanosecond)
	}
}

func TestCircuitBreaker_OpensCountedAcrossCycles(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)

	now = now.Add(31 * time.Second)
	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 2, cb.Stats().Opens)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Stats().Failures)
}

func TestNewCircuitBreaker_FillsInvalidConfig(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{})
	assert.Equal(t, DefaultCircuitBreakerConfig().MaxFailures, cb.cfg.MaxFailures)
	assert.Equal(t, DefaultCircuitBreakerConfig().Timeout, cb.cfg.Timeout)
	assert.Equal(t, 1, cb.cfg.HalfOpenMaxCalls)
}
