// Package resilience 为模型、嵌入与搜索调用提供重试和熔断。
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// ErrCircuitBreakerOpen 熔断器打开时拒绝调用。
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreakerState 熔断器状态，数值与 legalens_circuit_breaker_state 指标一致。
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig 熔断器配置。
type CircuitBreakerConfig struct {
	// MaxFailures 连续失败多少次后打开。
	MaxFailures int
	// Timeout 打开后多久允许探测。
	Timeout time.Duration
	// HalfOpenMaxCalls 半开状态下同时放行的探测调用数。
	HalfOpenMaxCalls int
	// OnStateChange 状态变化回调，持锁调用，不能阻塞。
	OnStateChange func(from, to CircuitBreakerState)
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置。
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// BreakerStats 熔断器统计快照。
type BreakerStats struct {
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	Opens           int       `json:"opens"`
	LastFailureTime time.Time `json:"last_failure_time"`
}

// CircuitBreaker 按连续失败次数熔断上游调用。
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    CircuitBreakerState
	failures int
	opens    int
	openedAt time.Time
	lastFail time.Time
	probes   int
	passed   int
}

// NewCircuitBreaker 创建熔断器，非法的配置项回退为默认值。
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	cfg := *def
	if config != nil {
		cfg = *config
		if cfg.MaxFailures <= 0 {
			cfg.MaxFailures = def.MaxFailures
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = def.Timeout
		}
		if cfg.HalfOpenMaxCalls <= 0 {
			cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
		}
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute 通过熔断器执行 fn。
func (cb *CircuitBreaker) Execute(fn func() error) error {
	done, err := cb.allow()
	if err != nil {
		return err
	}
	err = fn()
	done(err)
	return err
}

// allow 判断是否放行本次调用，放行时返回记录结果的回调。
func (cb *CircuitBreaker) allow() (func(error), error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			return nil, ErrCircuitBreakerOpen
		}
		cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxCalls {
			return nil, ErrCircuitBreakerOpen
		}
		cb.probes++
	}
	return cb.record, nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.passed++
			if cb.passed >= cb.probes {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	cb.lastFail = cb.now()
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.transition(StateOpen)
	}
}

// transition 切换状态并重置该状态的计数，调用方持锁。
func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.probes, cb.passed = 0, 0
	switch to {
	case StateOpen:
		cb.opens++
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}

	logger.Warnw("circuit breaker state changed", "from", from.String(), "to", to.String(), "failures", cb.failures)
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

// State 返回当前状态。
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats 返回统计快照。
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		State:           cb.state.String(),
		Failures:        cb.failures,
		Opens:           cb.opens,
		LastFailureTime: cb.lastFail,
	}
}

// Reset 强制回到关闭状态。
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
}
