package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/rushteam/hybridrec/core"
)

// EnvPrefix 是环境变量前缀。
const EnvPrefix = "HYBRIDREC_"

// PathEnvVar 指定配置文件路径的环境变量。
const PathEnvVar = "HYBRIDREC_CONFIG"

// Load 按 默认值 → 文件 → 环境变量 的顺序加载配置并校验。
// path 为空时读取 HYBRIDREC_CONFIG；两者都为空时跳过文件。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, configError("load defaults", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, configError("load file "+path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, configError("load env", err)
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

// envKey 把 HYBRIDREC_ENGINE__MIN_CONFIDENCE 转成 engine.min_confidence。
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate 校验配置。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return configError("validate", err)
	}
	return nil
}

// Dump 把配置渲染为 YAML。
func (c *Config) Dump() ([]byte, error) {
	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func configError(op string, err error) error {
	return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "config: "+op, err)
}
