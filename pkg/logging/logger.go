// Package logging 根据配置构建 zerolog.Logger。
//
// 组件不持有全局 logger，而是通过选项注入（例如 profile.WithLogger），未注入时为 zerolog.Nop()。
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置
type Config struct {
	// Level: trace, debug, info, warn, error（默认 info）
	Level string `koanf:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`

	// Format: json 或 console（默认 json）
	Format string `koanf:"format" yaml:"format" validate:"omitempty,oneof=json console"`

	// Caller 是否输出调用位置
	Caller bool `koanf:"caller" yaml:"caller"`

	// Output 默认 os.Stderr
	Output io.Writer `koanf:"-" yaml:"-"`
}

// DefaultConfig 返回默认日志配置
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// New 构建 logger。未知级别返回错误。
//
//nolint:gocritic // Config is small and passed by value like zerolog options
func New(cfg Config) (zerolog.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("logging: invalid format %q", cfg.Format)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}
