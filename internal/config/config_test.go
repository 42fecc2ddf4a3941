package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: 127.0.0.1
  port: 8080
database:
  host: localhost
  port: 5432
  name: yokd
  user: yokd
  password: secret
cache:
  dir: /var/lib/yokd
auth:
  api_key: test-key
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "yokd" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "yokd")
	}
	if cfg.Tailscale.Enabled {
		t.Error("tailscale.enabled should default to false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing port", `
database: {host: localhost, port: 5432, name: yokd, user: yokd}
cache: {dir: /tmp/yokd}
auth: {api_key: k}
`},
		{"missing db host", `
server: {port: 8080}
database: {port: 5432, name: yokd, user: yokd}
cache: {dir: /tmp/yokd}
auth: {api_key: k}
`},
		{"missing cache dir", `
server: {port: 8080}
database: {host: localhost, port: 5432, name: yokd, user: yokd}
auth: {api_key: k}
`},
		{"missing api key", `
server: {port: 8080}
database: {host: localhost, port: 5432, name: yokd, user: yokd}
cache: {dir: /tmp/yokd}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTailscaleModeSkipsPortRequirement(t *testing.T) {
	yaml := `
tailscale: {enabled: true, hostname: yokd, state_dir: /tmp/ts}
database: {host: localhost, port: 5432, name: yokd, user: yokd}
cache: {dir: /tmp/yokd}
auth: {api_key: k}
`
	if _, err := Load(writeConfig(t, yaml)); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("YOKD_SERVER_PORT", "9999")
	t.Setenv("YOKD_DB_PASSWORD", "override")
	t.Setenv("YOKD_NOTIFY_WEBHOOK_URL", "https://ntfy.example/yokd")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Password != "override" {
		t.Errorf("database.password = %q, want %q", cfg.Database.Password, "override")
	}
	if cfg.Notify.WebhookURL != "https://ntfy.example/yokd" {
		t.Errorf("notify.webhook_url = %q", cfg.Notify.WebhookURL)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "yokd", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/yokd?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
