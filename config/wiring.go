package config

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pkg/logging"
	"github.com/rushteam/movieprofile/profile"
	"github.com/rushteam/movieprofile/space"
	"github.com/rushteam/movieprofile/store"
)

// Logger 按 Log 配置构建 logger
func (c *Config) Logger() (zerolog.Logger, error) {
	logger, err := logging.New(c.Log)
	if err != nil {
		return logger, configError("log", err)
	}
	return logger, nil
}

// SpaceOptions 返回向量空间的索引选项
func (c *Config) SpaceOptions() []space.Option {
	if c.Index.Kind == "hnsw" {
		return []space.Option{space.WithHNSW(c.Index.HNSW)}
	}
	return []space.Option{space.WithBruteForce()}
}

// OpenStore 按 Store 配置打开画像存储；开启熔断时包一层 BreakerStore。
func (c *Config) OpenStore(ctx context.Context) (core.Store, error) {
	var (
		s   core.Store
		err error
	)
	switch c.Store.Backend {
	case "redis":
		s, err = store.NewRedisStore(ctx, c.Store.Redis.Addr, c.Store.Redis.DB)
	case "badger":
		s, err = store.NewBadgerStore(c.Store.Badger.Path)
	case "memory", "":
		s = store.NewMemoryStore()
	default:
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, "config: unknown store backend "+c.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	if c.Store.Breaker.Enabled {
		s = store.NewBreakerStore(s, store.BreakerConfig{
			ConsecutiveFailures: c.Store.Breaker.ConsecutiveFailures,
			Timeout:             c.Store.Breaker.Timeout,
			Interval:            c.Store.Breaker.Interval,
		})
	}
	return s, nil
}

// ProfileOptions 返回画像选项；s 为 nil 时画像不落盘。
//
//nolint:gocritic // zerolog.Logger is passed by value by convention
func (c *Config) ProfileOptions(s core.Store, logger zerolog.Logger) []profile.Option {
	opts := []profile.Option{
		profile.WithDimension(c.Profile.Dimension),
		profile.WithThreshold(c.Profile.Threshold),
		profile.WithWorkers(c.Profile.Workers),
		profile.WithSpaceOptions(c.SpaceOptions()...),
		profile.WithLogger(logger),
	}
	if c.Profile.KeyPrefix != "" {
		opts = append(opts, profile.WithKeyPrefix(c.Profile.KeyPrefix))
	}
	if s != nil {
		opts = append(opts, profile.WithStore(s))
	}
	return opts
}
