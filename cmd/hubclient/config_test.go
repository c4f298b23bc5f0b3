package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hubclient.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	want := defaultConfig()
	if cfg.URL != want.URL || cfg.LogLevel != want.LogLevel || cfg.KeepAlive != 0 || cfg.AwaitHandshake {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
url = " ws://hub.local:9090/chat "
log_level = "debug"
keep_alive = "15s"
await_handshake = true
subscribe = ["message", " message ", "Message", ""]

[[send]]
method = "join"
args = ["general", 3]

[[send]]
method = "ping"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.URL != "ws://hub.local:9090/chat" {
		t.Errorf("unexpected url: %q", cfg.URL)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected log level: %v", cfg.LogLevel)
	}

	if cfg.KeepAlive != 15*time.Second {
		t.Errorf("unexpected keep alive: %v", cfg.KeepAlive)
	}

	if !cfg.AwaitHandshake {
		t.Error("expected await_handshake to be set")
	}

	if len(cfg.Subscribe) != 2 || cfg.Subscribe[0] != "message" || cfg.Subscribe[1] != "Message" {
		t.Errorf("unexpected subscribe list: %v", cfg.Subscribe)
	}

	if len(cfg.Send) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(cfg.Send))
	}

	join := cfg.Send[0]
	if join.Method != "join" || len(join.Args) != 2 || join.Args[0] != "general" || join.Args[1] != int64(3) {
		t.Errorf("unexpected join invocation: %+v", join)
	}

	if cfg.Send[1].Method != "ping" || len(cfg.Send[1].Args) != 0 {
		t.Errorf("unexpected ping invocation: %+v", cfg.Send[1])
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"empty url":      `url = ""`,
		"bad duration":   `keep_alive = "soon"`,
		"negative":       `keep_alive = "-1s"`,
		"bad level":      `log_level = "loud"`,
		"missing method": "[[send]]\nargs = [1]",
		"malformed toml": `url = `,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
