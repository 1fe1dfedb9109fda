package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/metrics"
)

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// Name 熔断器名称（用于监控），为空时使用 "<inner>-breaker"
	Name string `koanf:"name" yaml:"name"`

	// MaxRequests half-open 状态下允许的并发探测请求数
	MaxRequests uint32 `koanf:"max_requests" yaml:"max_requests"`

	// Interval closed 状态下计数清零的周期
	Interval time.Duration `koanf:"interval" yaml:"interval"`

	// Timeout open 状态持续多久后进入 half-open
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	// ConsecutiveFailures 连续失败多少次后熔断
	ConsecutiveFailures uint32 `koanf:"consecutive_failures" yaml:"consecutive_failures"`
}

func (c *BreakerConfig) withDefaults(inner string) {
	if c.Name == "" {
		c.Name = inner + "-breaker"
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
}

// BreakerStore 为任意 Store 加一层熔断保护。
// 后端持续失败时快速失败，返回的错误满足 core.IsUnavailable；
// key 不存在不算失败。
type BreakerStore struct {
	inner core.Store
	name  string
	cb    *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerStore 包装 inner
//
//nolint:gocritic // config is copied so defaults don't leak to the caller
func NewBreakerStore(inner core.Store, cfg BreakerConfig) *BreakerStore {
	cfg.withDefaults(inner.Name())
	threshold := cfg.ConsecutiveFailures

	metrics.StoreBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StoreBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return &BreakerStore{inner: inner, name: cfg.Name, cb: cb}
}

func (b *BreakerStore) Name() string { return b.inner.Name() }

// State 返回熔断器当前状态
func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerStore) execute(fn func() ([]byte, error)) ([]byte, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: "+b.name, err)
	}
	return out, err
}

func (b *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	return b.execute(func() ([]byte, error) {
		return b.inner.Get(ctx, key)
	})
}

func (b *BreakerStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.inner.Set(ctx, key, value)
	})
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.inner.Delete(ctx, key)
	})
	return err
}

func (b *BreakerStore) Close() error {
	return b.inner.Close()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

var _ core.Store = (*BreakerStore)(nil)
