// Package logging 基于 zerolog 构建日志实例。
//
// 组件通过构造参数接收 zerolog.Logger（按值），并用 component 字段派生子 logger：
//
//	logger := logging.New(logging.Config{Level: "debug", Format: "console"})
//	eng, _ := engine.New(repo, repo, engine.WithLogger(logger))
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace / debug / info / warn / error，默认 info
	Level string
	// Format: json / console，默认 json
	Format string
	// Output 默认 os.Stderr
	Output io.Writer
}

// New 创建 logger。无法识别的 Level 按 info 处理。
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "hybridrec").
		Logger()
}

// ParseLevel 解析日志级别，空值或非法值返回 info。
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Component 派生带 component 字段的子 logger。
//
//nolint:gocritic // zerolog.Logger 按值传递
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
