package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kart-io/logger"
)

// RetryConfig 重试配置。
type RetryConfig struct {
	// MaxAttempts 最大尝试次数（包括首次调用）。
	MaxAttempts int
	// InitialDelay 第一次重试前的等待时间。
	InitialDelay time.Duration
	// MaxDelay 单次等待上限。
	MaxDelay time.Duration
	// Multiplier 指数退避倍数。
	Multiplier float64
	// Jitter 在 [0, Jitter) 比例内随机缩短等待，0 表示不抖动。
	Jitter float64
	// RetryableErrors 判断错误是否可重试，nil 表示全部重试。
	RetryableErrors func(error) bool
}

// DefaultRetryConfig 返回默认重试配置。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.2,
		RetryableErrors: IsRetryableError,
	}
}

// Backoff 返回第 attempt 次失败后（从 1 开始）的等待时间，不含抖动。
func (c *RetryConfig) Backoff(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
		if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

func (c *RetryConfig) wait(attempt int) time.Duration {
	d := c.Backoff(attempt)
	if c.Jitter > 0 && d > 0 {
		d -= time.Duration(rand.Float64() * c.Jitter * float64(d))
	}
	return d
}

// RetryWithBackoff 按指数退避重试 fn，直到成功、遇到不可重试错误或 ctx 结束。
func RetryWithBackoff(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := max(config.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return err
		}
		if attempt >= attempts {
			if attempts > 1 {
				logger.Warnw("max retry attempts reached", "attempts", attempt, "error", err.Error())
			}
			return fmt.Errorf("max retry attempts (%d) reached: %w", attempts, err)
		}

		delay := config.wait(attempt)
		logger.Debugw("retrying after delay", "attempt", attempt, "delay", delay, "error", err.Error())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithCircuitBreaker 每次尝试都经过熔断器；熔断器打开时不再重试。
func RetryWithCircuitBreaker(ctx context.Context, retryConfig *RetryConfig, cb *CircuitBreaker, fn func() error) error {
	return RetryWithBackoff(ctx, retryConfig, func() error {
		return cb.Execute(fn)
	})
}
