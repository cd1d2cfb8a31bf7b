package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg := LoadFrom(viper.New())

	if cfg.Search.Threshold != 0.3 {
		t.Errorf("expected default threshold 0.3, got %v", cfg.Search.Threshold)
	}
	if cfg.Search.Limit != 50 {
		t.Errorf("expected default limit 50, got %d", cfg.Search.Limit)
	}
	if cfg.Search.SynthesizeMissing {
		t.Error("expected SynthesizeMissing to be off by default")
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("expected local storage backend, got '%s'", cfg.Storage.Backend)
	}
	if cfg.Database.MaxOpenConns != 25 || cfg.Database.MaxIdleConns != 5 {
		t.Errorf("unexpected pool defaults: %d/%d", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
	if cfg.Descriptor.CacheTTL != 10*time.Minute {
		t.Errorf("expected cache TTL 10m, got %v", cfg.Descriptor.CacheTTL)
	}
	if cfg.Auth.Password != "" {
		t.Error("expected no default operator password")
	}
	if err := cfg.Auth.Validate(); !errors.Is(err, ErrAuthNotConfigured) {
		t.Errorf("expected ErrAuthNotConfigured without AUTH_PASSWORD, got %v", err)
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthConfig
		wantErr bool
	}{
		{"configured", AuthConfig{Username: "operator", Password: "s3cret"}, false},
		{"missing password", AuthConfig{Username: "admin"}, true},
		{"missing username", AuthConfig{Password: "s3cret"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.auth.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFrom_AuthFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_PASSWORD", "s3cret")
	cfg := LoadFrom(viper.New())
	if cfg.Auth.Username != "admin" || cfg.Auth.Password != "s3cret" {
		t.Errorf("unexpected auth config %+v", cfg.Auth)
	}
	if err := cfg.Auth.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("SEARCH_MATCH_THRESHOLD", "0.35")
	t.Setenv("DATABASE_URL", "postgres://localhost/registry")
	t.Setenv("FACE_DETECTOR_URL", "http://detector:8000/")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")

	cfg := LoadFrom(viper.New())

	if cfg.Search.Threshold != 0.35 {
		t.Errorf("expected threshold 0.35, got %v", cfg.Search.Threshold)
	}
	if cfg.Database.URL != "postgres://localhost/registry" {
		t.Errorf("unexpected database URL '%s'", cfg.Database.URL)
	}
	if cfg.Descriptor.DetectorURL != "http://detector:8000" {
		t.Errorf("expected trailing slash trimmed, got '%s'", cfg.Descriptor.DetectorURL)
	}
	if cfg.Storage.Backend != "minio" {
		t.Errorf("expected lowercased backend, got '%s'", cfg.Storage.Backend)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected invalid value to fall back to 25, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoadFrom_InvalidThreshold(t *testing.T) {
	for _, value := range []string{"-0.1", "1", "7"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("SEARCH_MATCH_THRESHOLD", value)
			cfg := LoadFrom(viper.New())
			if cfg.Search.Threshold != 0.3 {
				t.Errorf("expected fallback to 0.3, got %v", cfg.Search.Threshold)
			}
		})
	}
}

func TestLoadFrom_Samples(t *testing.T) {
	cfg := LoadFrom(viper.New())

	if len(cfg.Samples.People) != 3 {
		t.Fatalf("expected 3 sample people, got %d", len(cfg.Samples.People))
	}

	seen := make(map[string]bool)
	for _, p := range cfg.Samples.People {
		if p.NationalID == "" {
			t.Errorf("sample %s has no national id", p.ID)
		}
		if seen[p.NationalID] {
			t.Errorf("duplicate sample national id %s", p.NationalID)
		}
		seen[p.NationalID] = true
	}
}

func TestLoadFrom_WebOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", " https://registry.example.org,,https://ops.example.org ")
	t.Setenv("WEB_ALLOW_LOCALHOST", "false")

	cfg := LoadFrom(viper.New())

	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://ops.example.org" {
		t.Errorf("unexpected origins: %q", cfg.Web.AllowedOrigins)
	}
	if cfg.Web.AllowLocalhost {
		t.Error("expected localhost origins to be disabled")
	}
}
