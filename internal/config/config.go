package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Model    ModelConfig    `mapstructure:"model"`
	OpenAI   ProviderConfig `mapstructure:"openai"`
	Doubao   ProviderConfig `mapstructure:"doubao"`
	Qwen     ProviderConfig `mapstructure:"qwen"`
	Access   AccessConfig   `mapstructure:"access"`
	PlantUML PlantUMLConfig `mapstructure:"plantuml"`
	Prompt   PromptConfig   `mapstructure:"prompt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	MCP      MCPConfig      `mapstructure:"mcp"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	// Hosted 为 true 时不读取本地配置文件，并启用单入口兜底路由
	Hosted bool `mapstructure:"hosted"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
}

type ProviderConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type AccessConfig struct {
	Code string `mapstructure:"code"`
}

type PlantUMLConfig struct {
	ServerURL string `mapstructure:"server_url"`
	Format    string `mapstructure:"format"`
}

type PromptConfig struct {
	System       string `mapstructure:"system"`
	UserTemplate string `mapstructure:"user_template"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MCPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

const (
	DefaultSystemPrompt = "You are a PlantUML expert. Produce valid PlantUML syntax that starts with @startuml and ends with @enduml. " +
		"Reply with a JSON object with exactly two string fields: \"plantuml_code\" holding the diagram source " +
		"and \"explanation\" holding a short explanation of the diagram."
	DefaultUserTemplate = "Create a diagram for: %s"
)

// Active 返回当前选中的模型提供方配置
func (c *Config) Active() ProviderConfig {
	switch c.Model.Provider {
	case "doubao":
		return c.Doubao
	case "qwen":
		return c.Qwen
	default:
		return c.OpenAI
	}
}

// AccessCodeEnabled 仅当配置了非空白访问码时才校验
func (c *Config) AccessCodeEnabled() bool {
	return strings.TrimSpace(c.Access.Code) != ""
}

var providers = []string{"openai", "doubao", "qwen"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.hosted", false)

	v.SetDefault("model.provider", "openai")

	// 每个提供方的所有字段都需要默认值，否则 UMLGEN_<PROVIDER>_<KEY> 不会被 Unmarshal 读取
	for _, provider := range providers {
		v.SetDefault(provider+".api_key", "")
		v.SetDefault(provider+".base_url", "")
		v.SetDefault(provider+".model", "")
		v.SetDefault(provider+".max_tokens", 0)
		v.SetDefault(provider+".temperature", 0.0)
		v.SetDefault(provider+".top_p", 0.0)
		v.SetDefault(provider+".timeout", 60*time.Second)
		v.SetDefault(provider+".debug_request", false)
	}

	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 4096)
	v.SetDefault("qwen.temperature", 0.2)
	v.SetDefault("qwen.top_p", 0.9)

	v.SetDefault("access.code", "")

	v.SetDefault("plantuml.server_url", "http://www.plantuml.com/plantuml")
	v.SetDefault("plantuml.format", "svg")

	v.SetDefault("prompt.system", DefaultSystemPrompt)
	v.SetDefault("prompt.user_template", DefaultUserTemplate)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mcp.enabled", true)
	v.SetDefault("mcp.path", "/mcp")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

var dotenvPath = ".env"

// 兼容部署平台约定的环境变量名
var envAliases = map[string][]string{
	"openai.api_key": {"OPENAI_API_KEY"},
	"doubao.api_key": {"DOUBAO_API_KEY", "ARK_API_KEY"},
	"qwen.api_key":   {"DASHSCOPE_API_KEY"},
	"access.code":    {"ACCESS_CODE"},
	"server.port":    {"PORT"},
}

// Load 构建一次性的只读配置。
// 优先级：默认值 < 配置文件 < .env < 环境变量；部署环境（VERCEL 或 server.hosted）下跳过本地文件。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("UMLGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		args := append([]string{key, "UMLGEN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	hosted := isHosted(v)
	if !hosted {
		if configPath != "" {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
				return nil, err
			}
		}
		// .env 只补充尚未设置的环境变量
		if fileExists(dotenvPath) {
			if err := gotenv.Load(dotenvPath); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Server.Hosted = hosted || cfg.Server.Hosted

	return cfg, nil
}

func isHosted(v *viper.Viper) bool {
	if os.Getenv("VERCEL") != "" {
		return true
	}
	return v.GetBool("server.hosted")
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
