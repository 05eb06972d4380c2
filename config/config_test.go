package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
base_url: http://trainer.local:8000
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Heartbeat.Duration() != 5*time.Second {
		t.Errorf("Heartbeat = %v, want 5s", cfg.Heartbeat.Duration())
	}
	if cfg.ReconnectDelay.Duration() != 2*time.Second {
		t.Errorf("ReconnectDelay = %v, want 2s", cfg.ReconnectDelay.Duration())
	}
	if cfg.RequestTimeout.Duration() != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout.Duration())
	}
	if !cfg.RelayEnabled() {
		t.Error("RelayEnabled() = false, want true by default")
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", cfg.SlogLevel())
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
base_url: https://trainer.example.com/
port: 9090
relay: false
heartbeat: 10s
reconnect_delay: 500ms
request_timeout: 3s
log_level: debug
headers:
  Authorization: Bearer token123
routes:
  workout_stream: /v2/workout/stream
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.BaseURL != "https://trainer.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.RelayEnabled() {
		t.Error("RelayEnabled() = true, want false")
	}
	if cfg.Heartbeat.Duration() != 10*time.Second {
		t.Errorf("Heartbeat = %v, want 10s", cfg.Heartbeat.Duration())
	}
	if cfg.ReconnectDelay.Duration() != 500*time.Millisecond {
		t.Errorf("ReconnectDelay = %v, want 500ms", cfg.ReconnectDelay.Duration())
	}
	if cfg.RequestTimeout.Duration() != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.RequestTimeout.Duration())
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	if diff := cmp.Diff(map[string]string{"Authorization": "Bearer token123"}, cfg.Headers); diff != "" {
		t.Errorf("Headers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"workout_stream": "/v2/workout/stream"}, cfg.Routes); diff != "" {
		t.Errorf("Routes mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("TRAINER_HOST", "http://10.0.0.5:8000")
	t.Setenv("TRAINER_TOKEN", "secret")

	yaml := `
base_url: ${TRAINER_HOST}
headers:
  Authorization: Bearer ${TRAINER_TOKEN}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Headers["Authorization"] != "Bearer secret" {
		t.Errorf("Authorization = %q", cfg.Headers["Authorization"])
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
base_url: ${PULSEFEED_TEST_UNSET_HOST:-http://localhost:8000}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q, want default", cfg.BaseURL)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing base_url", `port: 8080`, "base_url is required"},
		{"missing env var", `base_url: ${PULSEFEED_TEST_MISSING}`, "not set"},
		{"no scheme", `base_url: trainer.local:8000`, "scheme"},
		{"relative", `base_url: /api`, "scheme"},
		{"ws scheme", `base_url: ws://trainer.local`, "http or https"},
		{"port out of range", "base_url: http://h\nport: 70000", "port"},
		{"heartbeat too small", "base_url: http://h\nheartbeat: 10ms", "heartbeat"},
		{"negative reconnect", "base_url: http://h\nreconnect_delay: -1s", "reconnect_delay"},
		{"negative timeout", "base_url: http://h\nrequest_timeout: -1s", "request_timeout"},
		{"unknown route", "base_url: http://h\nroutes:\n  nope: /x", "unknown route"},
		{"route without slash", "base_url: http://h\nroutes:\n  metrics_stream: metrics", "must start with /"},
		{"bad log level", "base_url: http://h\nlog_level: loud", "log_level"},
		{"header env missing", "base_url: http://h\nheaders:\n  X-Key: ${PULSEFEED_TEST_MISSING}", "headers[X-Key]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("base_url: [unclosed")); err == nil {
		t.Error("Parse() expected error for invalid YAML, got nil")
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"milliseconds", "1500ms", 1500 * time.Millisecond, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "base_url: http://h\nheartbeat: " + tt.input

			cfg, err := Parse([]byte(yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.Heartbeat.Duration() != tt.want {
				t.Errorf("Heartbeat = %v, want %v", cfg.Heartbeat.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsefeed.yaml")
	if err := os.WriteFile(path, []byte("base_url: http://localhost:8000\nport: 9000\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}
