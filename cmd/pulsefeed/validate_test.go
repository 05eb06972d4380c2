package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so that tests sharing
// rootCmd do not see each other's values.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeConfig writes content to a config file in a temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// executeValidateCmd runs the validate command with the given config path
// and returns captured stdout and any error.
func executeValidateCmd(t *testing.T, configPath string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	// capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// execute via root command with validate subcommand
	rootCmd.SetArgs([]string{"validate", "-c", configPath})
	err := rootCmd.Execute()

	// restore stdout
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	return buf.String(), err
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
base_url: http://localhost:8000/
port: 9090
heartbeat: 3s
routes:
  workout_stream: /v2/workout/stream
`)

	output, err := executeValidateCmd(t, configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Base URL:        http://localhost:8000",
		"Heartbeat:       3s",
		"Reconnect delay: 2s",
		"Relay:           port 9090",
		"http://localhost:8000/metrics/stream",
		"http://localhost:8000/metrics/devices/stream",
		"http://localhost:8000/v2/workout/stream",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_RelayDisabled(t *testing.T) {
	configPath := writeConfig(t, `
base_url: https://trainer.local
relay: false
`)

	output, err := executeValidateCmd(t, configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "Relay:           disabled") {
		t.Errorf("output should report relay disabled\nGot: %s", output)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
base_url: ftp://localhost:8000
`)

	_, err := executeValidateCmd(t, configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "scheme must be http or https") {
		t.Errorf("error should mention the scheme, got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeValidateCmd(t, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}
