package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadConfigMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  host: localhost\n  port: 5432\nserver:\n  port: \":8080\"\n")
	writeFile(t, dir, "production.yaml", "db:\n  host: db.internal\n")

	cfg, err := LoadConfig("production", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var out struct {
		DB     DBConfig     `yaml:"db"`
		Server ServerConfig `yaml:"server"`
	}
	if err := Decode(cfg, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.DB.Host != "db.internal" {
		t.Fatalf("host = %q, want db.internal", out.DB.Host)
	}
	if out.DB.Port != 5432 {
		t.Fatalf("port = %d, want 5432 from base", out.DB.Port)
	}
	if out.Server.Port != ":8080" {
		t.Fatalf("server port = %q", out.Server.Port)
	}
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "cron:\n  secret: ${FT_TEST_CRON}\njwt:\n  secret: ${FT_TEST_JWT}\n")
	writeFile(t, dir, "secrets.env", "FT_TEST_CRON=from-file\nFT_TEST_JWT=\"quoted\"\n")
	t.Setenv("FT_TEST_JWT", "from-env")

	cfg, err := LoadConfig("local", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var out struct {
		Cron CronConfig `yaml:"cron"`
		JWT  JWTConfig  `yaml:"jwt"`
	}
	if err := Decode(cfg, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Cron.Secret != "from-file" {
		t.Fatalf("cron secret = %q", out.Cron.Secret)
	}
	if out.JWT.Secret != "from-env" {
		t.Fatalf("jwt secret = %q, process env should win", out.JWT.Secret)
	}
}

func TestLoadConfigMissingBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatalf("expected error without base.yaml")
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "1m0s"},
		{"garbage", "1m0s"},
		{"-5s", "1m0s"},
		{"250ms", "250ms"},
	}
	for _, tc := range cases {
		got := ParseDuration(tc.raw, 60_000_000_000)
		if got.String() != tc.want {
			t.Fatalf("ParseDuration(%q) = %s; want %s", tc.raw, got, tc.want)
		}
	}
}

func TestOverrideServerFromEnvAddsColon(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	cfg := ServerConfig{Port: ":8080"}
	OverrideServerFromEnv(&cfg)
	if cfg.Port != ":9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
}
