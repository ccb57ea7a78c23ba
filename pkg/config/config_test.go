package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 || c.Server.ShutdownTimeout != 15*time.Second {
		t.Fatalf("unexpected server defaults: %+v", c.Server)
	}
	if c.Logger.Level != "info" || c.Logger.Format != "json" {
		t.Fatalf("unexpected logger defaults: %+v", c.Logger)
	}
	if c.Engine.DefaultFamily != "camarilla" || c.Engine.SnapshotTTL != 24*time.Hour {
		t.Fatalf("unexpected engine defaults: %+v", c.Engine)
	}
	if c.Engine.PersistMode != "sync" || c.Queue.RetryLimit != 5 || c.Queue.KeyPrefix != "signals:queue" {
		t.Fatalf("unexpected persistence defaults: %s %+v", c.Engine.PersistMode, c.Queue)
	}
	if c.Cache.Mode != "memory" || c.Kafka.RequiredAcks != -1 {
		t.Fatalf("unexpected defaults: cache=%s acks=%d", c.Cache.Mode, c.Kafka.RequiredAcks)
	}
}

func TestLoadKeepsYAMLValues(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"environment: production",
		"server:",
		"  port: 9090",
		"  read_timeout: 3s",
		"engine:",
		"  default_family: pivot",
		"kafka:",
		"  enabled: true",
		"  brokers: [\"k1:9092\"]",
		"  required_acks: 1",
	}, "\n"))

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9090 || c.Server.ReadTimeout != 3*time.Second {
		t.Fatalf("unexpected server: %+v", c.Server)
	}
	if c.Engine.DefaultFamily != "pivot" || !c.Kafka.Enabled || c.Kafka.Brokers[0] != "k1:9092" {
		t.Fatalf("unexpected values: %+v %+v", c.Engine, c.Kafka)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: test\nserver:\n  port: 9090\n")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("CACHE_MODE", "layered")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 7000 {
		t.Fatalf("expected env port, got %d", c.Server.Port)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", c.Kafka.Brokers)
	}
	if c.Cache.Mode != "layered" || c.Logger.Level != "debug" {
		t.Fatalf("unexpected overrides: %s %s", c.Cache.Mode, c.Logger.Level)
	}
	if c.RedisAddr() != "localhost:6379" {
		t.Fatalf("unexpected redis addr %s", c.RedisAddr())
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad env":          "environment: moon\n",
		"bad cache mode":   "environment: test\ncache:\n  mode: disk\n",
		"kafka no brokers": "environment: test\nkafka:\n  enabled: true\n",
		"same topics":      "environment: test\nkafka:\n  enabled: true\n  brokers: [\"k:9092\"]\n  snapshots_topic: t\n  results_topic: t\n",
		"bad log level":    "environment: test\nlogger:\n  level: loud\n",
		"bad persist mode": "environment: test\nengine:\n  persist_mode: later\n",
		"queue on memory":  "environment: test\nengine:\n  persist_mode: queue\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
