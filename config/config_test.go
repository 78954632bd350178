package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"server": {"addr": ":9090"},
		"database": {"dsn": "host=localhost"},
		"auth": {"jwt_secret": "file-secret"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OASIS_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("Auth.JWTSecret = %q, want file-secret", cfg.Auth.JWTSecret)
	}
	// 未给出的字段落到默认值
	if cfg.Chat.RoomTTLHours != 8 {
		t.Errorf("Chat.RoomTTLHours = %d, want 8", cfg.Chat.RoomTTLHours)
	}
	if cfg.World.Width != 800 || cfg.World.Height != 600 || cfg.World.Padding != 16 {
		t.Errorf("World defaults = %+v", cfg.World)
	}
	if cfg.Kafka.Topic != "oasis.room-events" {
		t.Errorf("Kafka.Topic = %q", cfg.Kafka.Topic)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"auth": {"jwt_secret": "file-secret"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OASIS_CONFIG", path)
	t.Setenv("OASIS_JWT_SECRET", "env-secret")
	t.Setenv("OASIS_REDIS_ADDR", "localhost:6379")
	t.Setenv("OASIS_KAFKA_BROKERS", "b1:9092,b2:9092")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("Auth.JWTSecret = %q, want env-secret", cfg.Auth.JWTSecret)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("OASIS_CONFIG", filepath.Join(t.TempDir(), "nope.json"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() expected error for missing file")
	}
}
