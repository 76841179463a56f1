package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		AI: AIConfig{APIKey: "test-key"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestValidate_DistanceThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DistanceThreshold = 2.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for distance threshold above cosine range")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.AI.ClassificationModel != "gpt-4o-mini" {
		t.Errorf("expected default classification model, got %q", cfg.AI.ClassificationModel)
	}
	if cfg.AI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %q", cfg.AI.EmbeddingModel)
	}
	if cfg.AI.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.AI.Dimensions)
	}
	if cfg.AI.MaxTags != 5 {
		t.Errorf("expected MaxTags=5, got %d", cfg.AI.MaxTags)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.QueueSize != 256 {
		t.Errorf("expected QueueSize=256, got %d", cfg.Pipeline.QueueSize)
	}
	if cfg.Pipeline.RetryAttempts != 3 {
		t.Errorf("expected RetryAttempts=3, got %d", cfg.Pipeline.RetryAttempts)
	}
	if cfg.Pipeline.RetryBaseMS != 500 {
		t.Errorf("expected RetryBaseMS=500, got %d", cfg.Pipeline.RetryBaseMS)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("expected DefaultLimit=20, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.MaxLimit != 100 {
		t.Errorf("expected MaxLimit=100, got %d", cfg.Search.MaxLimit)
	}
	if cfg.Search.DistanceThreshold != 0.5 {
		t.Errorf("expected DistanceThreshold=0.5, got %f", cfg.Search.DistanceThreshold)
	}
	if cfg.Storage.KeyPrefix != "memoir:" {
		t.Errorf("expected KeyPrefix='memoir:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		AI:       AIConfig{ClassificationModel: "gpt-4o", Dimensions: 3072, MaxTags: 10},
		Pipeline: PipelineConfig{Workers: 8, QueueSize: 1024},
		Search:   SearchConfig{DefaultLimit: 50, MaxLimit: 500, DistanceThreshold: 0.7},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.AI.ClassificationModel != "gpt-4o" {
		t.Errorf("expected ClassificationModel='gpt-4o', got %q", cfg.AI.ClassificationModel)
	}
	if cfg.AI.Dimensions != 3072 {
		t.Errorf("expected Dimensions=3072, got %d", cfg.AI.Dimensions)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("expected Workers=8, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Search.DistanceThreshold != 0.7 {
		t.Errorf("expected DistanceThreshold=0.7, got %f", cfg.Search.DistanceThreshold)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MEMOIR_TEST_KEY", "secret")

	in := []byte("api_key: ${MEMOIR_TEST_KEY}\nprefix: ${MEMOIR_TEST_UNSET:-memoir:}\nempty: ${MEMOIR_TEST_NEVER_SET}")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nprefix: memoir:\nempty: "
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
