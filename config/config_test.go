package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	raw := `{
  "general": {"jwt_secret": "s3cret"},
  "storage": {
    "postgres": {"url": "postgres://nf:pw@db:5432/nichefinder"},
    "redis": {"host": "cache", "port": "6379"}
  },
  "providers": {"openai": {"api_key": "sk-test"}},
  "research": {"serper_api_key": "serper", "youtube_api_key": "yt"}
}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadConfig(path)
	if cfg.General.Listen != ":10010" {
		t.Fatalf("listen default = %q", cfg.General.Listen)
	}
	if cfg.Storage.Postgres.Migrations != "file://migrations" {
		t.Fatalf("migrations default = %q", cfg.Storage.Postgres.Migrations)
	}
	if cfg.Research.MaxResults != 10 || cfg.Research.CommunitySite != "reddit.com" {
		t.Fatalf("research defaults = %+v", cfg.Research)
	}
	if cfg.Credits.SignupGrant != 5 {
		t.Fatalf("signup grant default = %d", cfg.Credits.SignupGrant)
	}
}

func TestLoadConfigHonorsMigrationsOverride(t *testing.T) {
	raw := `{
  "general": {"jwt_secret": "s3cret"},
  "storage": {
    "postgres": {"url": "postgres://nf:pw@db:5432/nichefinder", "migrations": "file:///opt/nichefinder/migrations"},
    "redis": {"host": "cache", "port": "6379"}
  },
  "providers": {"openai": {"api_key": "sk-test"}},
  "research": {"serper_api_key": "serper", "youtube_api_key": "yt"}
}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadConfig(path)
	if cfg.Storage.Postgres.Migrations != "file:///opt/nichefinder/migrations" {
		t.Fatalf("migrations = %q", cfg.Storage.Postgres.Migrations)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "nf", Password: "pw", DBName: "nichefinder"}
	got := p.DSN()
	want := "postgres://nf:pw@db:5432/nichefinder?sslmode=disable"
	if got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}

	p.URL = "postgres://explicit"
	if p.DSN() != "postgres://explicit" {
		t.Fatalf("explicit url not honored: %q", p.DSN())
	}
}

func TestPostgresValidate(t *testing.T) {
	if err := (PostgresConfig{URL: "postgres://x"}).Validate(); err != nil {
		t.Fatalf("url-only config should validate: %v", err)
	}
	if err := (PostgresConfig{Host: "db"}).Validate(); err == nil {
		t.Fatal("missing dbname should fail validation")
	}
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: "6379"}
	if r.Addr() != "cache:6379" {
		t.Fatalf("Addr = %q", r.Addr())
	}
	if err := (RedisConfig{Host: "cache"}).Validate(); err == nil {
		t.Fatal("missing port should fail validation")
	}
}

func TestGeneralValidate(t *testing.T) {
	if err := (GeneralConfig{JWTSecret: " "}).Validate(); err == nil {
		t.Fatal("blank jwt secret should fail validation")
	}
	if err := (GeneralConfig{JWTSecret: "s3cret"}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
