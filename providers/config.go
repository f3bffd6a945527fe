package providers

import "time"

// Config 是各 provider 共享的基础配置。
// APIKey 为空时，入站请求自带的 bearer 凭证被透传/迁移；
// 非空时覆盖调用方凭证。
type Config struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// OpenAIConfig OpenAI 配置（缺省 provider）。
type OpenAIConfig struct {
	Config `yaml:",inline"`
}

// AnthropicConfig Anthropic 配置。
type AnthropicConfig struct {
	Config  `yaml:",inline"`
	Version string `yaml:"version" json:"version"` // anthropic-version 头
}

// GeminiConfig Google Gemini 配置。
type GeminiConfig struct {
	Config `yaml:",inline"`
}

// AzureConfig Azure OpenAI 配置。
// Resource 是 {resource}.openai.azure.com 中的资源名；
// deployment 名从请求声明的模型推导。
type AzureConfig struct {
	Config     `yaml:",inline"`
	Resource   string `yaml:"resource" json:"resource"`
	APIVersion string `yaml:"api_version" json:"api_version"`
}

// MistralConfig Mistral 配置。
type MistralConfig struct {
	Config `yaml:",inline"`
}

// OpenRouterConfig OpenRouter 配置。
// Referer/Title 是 OpenRouter 用于归因统计的可选头。
type OpenRouterConfig struct {
	Config  `yaml:",inline"`
	Referer string `yaml:"referer" json:"referer"`
	Title   string `yaml:"title" json:"title"`
}
