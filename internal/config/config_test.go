package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VERCEL", "OPENAI_API_KEY", "ACCESS_CODE", "PORT",
		"DOUBAO_API_KEY", "ARK_API_KEY", "DASHSCOPE_API_KEY",
		"UMLGEN_SERVER_HOSTED", "UMLGEN_MODEL_PROVIDER", "UMLGEN_ACCESS_CODE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dotenvPath = filepath.Join(t.TempDir(), ".env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Model.Provider != "openai" || cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model config: %+v %+v", cfg.Model, cfg.OpenAI)
	}
	if cfg.OpenAI.Timeout != 60*time.Second {
		t.Fatalf("timeout = %v", cfg.OpenAI.Timeout)
	}
	if cfg.PlantUML.ServerURL != "http://www.plantuml.com/plantuml" || cfg.PlantUML.Format != "svg" {
		t.Fatalf("unexpected plantuml config: %+v", cfg.PlantUML)
	}
	if cfg.AccessCodeEnabled() {
		t.Fatal("access code should be disabled by default")
	}
	if cfg.Server.Hosted {
		t.Fatal("hosted should default to false")
	}
}

func TestLoadEnvironmentAliases(t *testing.T) {
	clearEnv(t)
	dotenvPath = filepath.Join(t.TempDir(), ".env")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ACCESS_CODE", "secret")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Fatalf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Access.Code != "secret" || !cfg.AccessCodeEnabled() {
		t.Fatalf("access code = %q", cfg.Access.Code)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if got := cfg.Active().APIKey; got != "sk-test" {
		t.Fatalf("active key = %q", got)
	}
}

func TestLoadProviderKeysFromPrefixedEnv(t *testing.T) {
	clearEnv(t)
	dotenvPath = filepath.Join(t.TempDir(), ".env")
	t.Setenv("VERCEL", "1")
	t.Setenv("UMLGEN_OPENAI_DEBUG_REQUEST", "true")
	t.Setenv("UMLGEN_OPENAI_MAX_TOKENS", "1234")
	t.Setenv("UMLGEN_OPENAI_TEMPERATURE", "0.3")
	t.Setenv("UMLGEN_OPENAI_MODEL", "gpt-x")
	t.Setenv("UMLGEN_DOUBAO_BASE_URL", "https://ark.example")
	t.Setenv("UMLGEN_DOUBAO_TOP_P", "0.5")
	t.Setenv("UMLGEN_QWEN_TIMEOUT", "7s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.OpenAI.DebugRequest || cfg.OpenAI.MaxTokens != 1234 || cfg.OpenAI.Model != "gpt-x" {
		t.Fatalf("openai = %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.Temperature != 0.3 {
		t.Fatalf("openai temperature = %v", cfg.OpenAI.Temperature)
	}
	if cfg.Doubao.BaseURL != "https://ark.example" || cfg.Doubao.TopP != 0.5 {
		t.Fatalf("doubao = %+v", cfg.Doubao)
	}
	if cfg.Qwen.Timeout != 7*time.Second {
		t.Fatalf("qwen timeout = %v", cfg.Qwen.Timeout)
	}
}

func TestLoadYAMLAndProviderSelection(t *testing.T) {
	clearEnv(t)
	dotenvPath = filepath.Join(t.TempDir(), ".env")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
model:
  provider: qwen
qwen:
  api_key: qk
  model: qwen-max
  timeout: 5s
plantuml:
  format: png
access:
  code: "   "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Provider != "qwen" {
		t.Fatalf("provider = %q", cfg.Model.Provider)
	}
	active := cfg.Active()
	if active.APIKey != "qk" || active.Model != "qwen-max" || active.Timeout != 5*time.Second {
		t.Fatalf("active = %+v", active)
	}
	if cfg.PlantUML.Format != "png" {
		t.Fatalf("format = %q", cfg.PlantUML.Format)
	}
	if cfg.AccessCodeEnabled() {
		t.Fatal("whitespace-only access code must not enable the check")
	}
}

func TestLoadHostedSkipsLocalFiles(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERCEL", "1")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "access:\n  code: from-file\n")
	dotenvPath = writeFile(t, dir, ".env", "DASHSCOPE_API_KEY=from-dotenv\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Server.Hosted {
		t.Fatal("expected hosted mode")
	}
	if cfg.Access.Code != "" {
		t.Fatalf("config file should be ignored, got %q", cfg.Access.Code)
	}
	if cfg.Qwen.APIKey != "" {
		t.Fatalf(".env should be ignored, got %q", cfg.Qwen.APIKey)
	}
}

func TestLoadDotenvLocally(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DASHSCOPE_API_KEY")
	t.Cleanup(func() { os.Unsetenv("DASHSCOPE_API_KEY") })
	dotenvPath = writeFile(t, t.TempDir(), ".env", "DASHSCOPE_API_KEY=from-dotenv\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Qwen.APIKey != "from-dotenv" {
		t.Fatalf("qwen key = %q", cfg.Qwen.APIKey)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	clearEnv(t)
	dotenvPath = filepath.Join(t.TempDir(), ".env")
	path := writeFile(t, t.TempDir(), "config.yaml", "server: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
