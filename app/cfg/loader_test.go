package cfg

import (
	"testing"
	"time"
)

var requiredArgs = []string{"--gemini-api-key", "gemini-key", "--search-api-key", "serp-key"}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(requiredArgs)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.StoreArticlePath != "/api/article" {
		t.Errorf("Expected article path '/api/article', got '%s'", cfg.StoreArticlePath)
	}
	if cfg.StoreIndexPath != "/api/all" {
		t.Errorf("Expected index path '/api/all', got '%s'", cfg.StoreIndexPath)
	}
	if cfg.StoreTimeout != 15*time.Second {
		t.Errorf("Expected store timeout 15s, got %s", cfg.StoreTimeout)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("Expected model 'gemini-2.5-flash', got '%s'", cfg.GeminiModel)
	}
	if cfg.LLMTimeout != 120*time.Second {
		t.Errorf("Expected LLM timeout 120s, got %s", cfg.LLMTimeout)
	}
	if cfg.SearchTimeout != 30*time.Second {
		t.Errorf("Expected search timeout 30s, got %s", cfg.SearchTimeout)
	}
	if cfg.LeaseTTL != 15*time.Minute {
		t.Errorf("Expected lease TTL 15m, got %s", cfg.LeaseTTL)
	}
	if cfg.DBPath != "./data/optimizer.db" {
		t.Errorf("Expected DB path './data/optimizer.db', got '%s'", cfg.DBPath)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("Expected no Redis address, got '%s'", cfg.RedisAddr)
	}
	if cfg.RunRetention != 30 {
		t.Errorf("Expected retention 30, got %d", cfg.RunRetention)
	}
	if cfg.GeminiAPIKey != "gemini-key" || cfg.SearchAPIKey != "serp-key" {
		t.Error("Expected API keys to be read from flags")
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestParse_Overrides(t *testing.T) {
	args := append([]string{
		"--port", "9090",
		"--store-url", "https://cms.example.com/",
		"--llm-timeout", "45s",
		"--redis-addr", "localhost:6379",
		"--worker-count", "4",
		"--debug",
	}, requiredArgs...)

	cfg, err := Parse(args)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.StoreURL != "https://cms.example.com" {
		t.Errorf("Expected trailing slash to be trimmed, got '%s'", cfg.StoreURL)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Errorf("Expected LLM timeout 45s, got %s", cfg.LLMTimeout)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected Redis address, got '%s'", cfg.RedisAddr)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestParse_Environment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("SEARCH_API_KEY", "env-serp")
	t.Setenv("STORE_URL", "http://store:8000")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.GeminiAPIKey != "env-gemini" {
		t.Errorf("Expected Gemini key from env, got '%s'", cfg.GeminiAPIKey)
	}
	if cfg.StoreURL != "http://store:8000" {
		t.Errorf("Expected store URL from env, got '%s'", cfg.StoreURL)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing required keys", []string{}},
		{"zero workers", append([]string{"--worker-count", "0"}, requiredArgs...)},
		{"bad store url", append([]string{"--store-url", "cms.example.com"}, requiredArgs...)},
		{"bad duration", append([]string{"--llm-timeout", "soon"}, requiredArgs...)},
		{"zero lease", append([]string{"--lease-ttl", "0s"}, requiredArgs...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.args); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
