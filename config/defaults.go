// =============================================================================
// 📦 LLMFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"fmt"
	"time"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/storage"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Storage:   DefaultStorageConfig(),
		Providers: DefaultProvidersConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        4318,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // 流式转发不限写超时
		ShutdownTimeout: 15 * time.Second,
		UpstreamTimeout: 5 * time.Minute,
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Path:      "llmflow.db",
		Retention: storage.DefaultRetention(),
	}
}

// DefaultProvidersConfig 返回默认 provider 配置
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Default: "openai",
		Anthropic: providers.AnthropicConfig{
			Version: "2023-06-01",
		},
		Azure: providers.AzureConfig{
			APIVersion: "2024-02-01",
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "console",
	}
}

// Validate 做基本合法性检查
func Validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path must not be empty")
	}
	for _, p := range cfg.Pricing {
		if p.Model == "" {
			return fmt.Errorf("pricing override with empty model")
		}
		if p.Input < 0 || p.Output < 0 {
			return fmt.Errorf("pricing override for %s has negative price", p.Model)
		}
	}
	return nil
}
