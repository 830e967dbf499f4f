package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{
				"openai": {APIKey: "test-key"},
			},
			Vectorizers: map[string]VectorizerConfig{
				"default": {Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Providers["openai"] = ProviderConfig{
		APIKey: "test-key",
		Budget: BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}
	expected := `embedding.providers.openai.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Providers["openai"] = ProviderConfig{Budget: BudgetConfig{Action: action}}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"driver", func(c *Config) { c.Database.Driver = "memcached" }, "database.driver"},
		{"top_k order", func(c *Config) { c.Retrieval.DefaultTopK = 200 }, "default_top_k"},
		{"negative dims", func(c *Config) { c.Retrieval.Dimensions = -1 }, "retrieval.dimensions"},
		{"dims conflict", func(c *Config) { c.Retrieval.Dimensions = 768 }, "differs from the vectorizer"},
		{"unknown provider", func(c *Config) {
			c.Embedding.Vectorizers["default"] = VectorizerConfig{Provider: "nope"}
		}, "is not a configured provider"},
		{"unknown vectorizer", func(c *Config) { c.Embedding.Vectorizer = "other" }, "is not defined"},
		{"ambiguous vectorizer", func(c *Config) {
			c.Embedding.Vectorizers["second"] = VectorizerConfig{Provider: "openai"}
		}, "must name one of several"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate_DatabaseOptional(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config without database: %v", err)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without addrs")
	}
	cfg.Database.Addrs = []string{"localhost:6379"}
	if !cfg.Database.Enabled() {
		t.Error("database should be enabled with addrs")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Providers: map[string]ProviderConfig{"openai": {}}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("http defaults = %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != "valkey" || cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if cfg.Retrieval.DefaultTopK != 5 || cfg.Retrieval.MaxTopK != 100 || cfg.Retrieval.MaxBatchSize != 500 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.CRM.IndexOnStart == nil || !*cfg.CRM.IndexOnStart {
		t.Error("crm.index_on_start should default to true")
	}
	if cfg.CORS.MaxAgeSec != 300 {
		t.Errorf("cors.max_age_sec = %d", cfg.CORS.MaxAgeSec)
	}
	if got := cfg.Embedding.Providers["openai"].TimeoutSec; got != 10 {
		t.Errorf("provider timeout = %d, want 10", got)
	}
}

func TestApplyDefaults_KeepsExplicitIndexOnStart(t *testing.T) {
	off := false
	cfg := Config{CRM: CRMConfig{IndexOnStart: &off}}
	cfg.ApplyDefaults()
	if *cfg.CRM.IndexOnStart {
		t.Error("explicit false was overwritten")
	}
}

func TestActiveVectorizer(t *testing.T) {
	cfg := validConfig()
	name, vc, ok := cfg.Embedding.ActiveVectorizer()
	if !ok || name != "default" || vc.Dimensions != 1536 {
		t.Errorf("single vectorizer = %q %+v %v", name, vc, ok)
	}

	cfg.Embedding.Vectorizers["alt"] = VectorizerConfig{Provider: "openai", Model: "m2"}
	if _, _, ok := cfg.Embedding.ActiveVectorizer(); ok {
		t.Error("ambiguous vectorizers should not resolve")
	}
	cfg.Embedding.Vectorizer = "alt"
	if name, vc, ok := cfg.Embedding.ActiveVectorizer(); !ok || name != "alt" || vc.Model != "m2" {
		t.Errorf("named vectorizer = %q %+v %v", name, vc, ok)
	}

	if _, _, ok := (EmbeddingConfig{}).ActiveVectorizer(); ok {
		t.Error("empty config should not resolve")
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("NEXUSRAG_TEST_PORT", "9090")
	t.Setenv("NEXUSRAG_TEST_KEY", "")

	cfg, err := Parse([]byte(`
http:
  port: ${NEXUSRAG_TEST_PORT}
auth:
  api_keys: ["${NEXUSRAG_TEST_KEY:-fallback-key}"]
crm:
  index_on_start: false
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "fallback-key" {
		t.Errorf("api keys = %v", cfg.Auth.APIKeys)
	}
	if *cfg.CRM.IndexOnStart {
		t.Error("index_on_start should be false")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("local config has no port")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("GetEnv() = %q, want local", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("GetEnv() = %q, want prod", GetEnv())
	}
}
