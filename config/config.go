// Package config 加载引擎配置并把它接到各组件上。
//
// 配置分三层，后者覆盖前者：
//  1. 内置默认值（Default）
//  2. 可选的 YAML 文件
//  3. 环境变量 MOVIEPROFILE_*，嵌套层级用 "__" 分隔，
//     例如 MOVIEPROFILE_PROFILE__THRESHOLD=0.1 -> profile.threshold
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pkg/logging"
	"github.com/rushteam/movieprofile/profile"
	"github.com/rushteam/movieprofile/space"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "MOVIEPROFILE_"

// Config 是引擎的完整配置
type Config struct {
	Profile ProfileConfig  `koanf:"profile" yaml:"profile"`
	Index   IndexConfig    `koanf:"index" yaml:"index"`
	Store   StoreConfig    `koanf:"store" yaml:"store"`
	Log     logging.Config `koanf:"log" yaml:"log"`
}

// ProfileConfig 画像参数
type ProfileConfig struct {
	Dimension int     `koanf:"dimension" yaml:"dimension" validate:"gt=0"`
	Threshold float64 `koanf:"threshold" yaml:"threshold" validate:"gt=0,lte=1"`
	Workers   int     `koanf:"workers" yaml:"workers" validate:"gte=1,lte=256"`
	KeyPrefix string  `koanf:"key_prefix" yaml:"key_prefix"`
}

// IndexConfig 文本向量索引参数
type IndexConfig struct {
	// Kind: bruteforce（默认，精确）或 hnsw
	Kind string           `koanf:"kind" yaml:"kind" validate:"oneof=hnsw bruteforce"`
	HNSW space.HNSWParams `koanf:"hnsw" yaml:"hnsw"`
}

// StoreConfig 画像存储
type StoreConfig struct {
	// Backend: memory, redis 或 badger
	Backend string        `koanf:"backend" yaml:"backend" validate:"oneof=memory redis badger"`
	Redis   RedisConfig   `koanf:"redis" yaml:"redis"`
	Badger  BadgerConfig  `koanf:"badger" yaml:"badger"`
	Breaker BreakerConfig `koanf:"breaker" yaml:"breaker"`
}

// RedisConfig Redis 连接
type RedisConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
	DB   int    `koanf:"db" yaml:"db" validate:"gte=0"`
}

// BadgerConfig BadgerDB 目录；为空时使用内存模式
type BadgerConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// BreakerConfig 存储熔断
type BreakerConfig struct {
	Enabled             bool          `koanf:"enabled" yaml:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures" yaml:"consecutive_failures"`
	Timeout             time.Duration `koanf:"timeout" yaml:"timeout"`
	Interval            time.Duration `koanf:"interval" yaml:"interval"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Profile: ProfileConfig{
			Dimension: profile.DefaultDimension,
			Threshold: profile.DefaultThreshold,
			Workers:   profile.DefaultWorkers,
			KeyPrefix: profile.DefaultKeyPrefix,
		},
		Index: IndexConfig{
			Kind: "bruteforce",
			HNSW: space.DefaultHNSWParams(),
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379"},
			Breaker: BreakerConfig{
				ConsecutiveFailures: 5,
				Timeout:             30 * time.Second,
				Interval:            time.Minute,
			},
		},
		Log: logging.DefaultConfig(),
	}
}

// Load 按 默认值 -> YAML 文件（path 非空时）-> 环境变量 的顺序加载并校验配置。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, configError("load defaults", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, configError("config file "+path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, configError("load config file "+path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, configError("load environment", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, configError("unmarshal", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform: MOVIEPROFILE_STORE__REDIS__ADDR -> store.redis.addr
func envTransform(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置，失败返回 INVALID_CONFIG
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return configError("validate", err)
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, "config: store.redis.addr is required for the redis backend")
	}
	return nil
}

func configError(what string, err error) error {
	return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, fmt.Sprintf("config: %s", what), err)
}
