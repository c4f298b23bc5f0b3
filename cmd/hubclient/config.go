package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	URL            string       `toml:"url"`
	LogLevel       string       `toml:"log_level"`
	KeepAlive      string       `toml:"keep_alive"`
	AwaitHandshake bool         `toml:"await_handshake"`
	Subscribe      []string     `toml:"subscribe"`
	Send           []fileInvoke `toml:"send"`
}

type fileInvoke struct {
	Method string `toml:"method"`
	Args   []any  `toml:"args"`
}

type Invocation struct {
	Method string
	Args   []any
}

type Config struct {
	URL            string
	LogLevel       slog.Level
	KeepAlive      time.Duration
	AwaitHandshake bool
	Subscribe      []string
	Send           []Invocation
}

func defaultConfig() Config {
	return Config{
		URL:      "ws://localhost:8080/hub",
		LogLevel: slog.LevelInfo,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load hubclient config: %w", err)
	}

	if meta.IsDefined("url") {
		u := strings.TrimSpace(raw.URL)
		if u == "" {
			return Config{}, fmt.Errorf("url must not be empty")
		}
		cfg.URL = u
	}

	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
	}

	if meta.IsDefined("keep_alive") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.KeepAlive))
		if err != nil {
			return Config{}, fmt.Errorf("parse keep_alive: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("keep_alive must not be negative")
		}
		cfg.KeepAlive = d
	}

	if meta.IsDefined("await_handshake") {
		cfg.AwaitHandshake = raw.AwaitHandshake
	}

	if meta.IsDefined("subscribe") {
		cfg.Subscribe = normalizeTargets(raw.Subscribe)
	}

	for i, inv := range raw.Send {
		method := strings.TrimSpace(inv.Method)
		if method == "" {
			return Config{}, fmt.Errorf("send[%d]: method is required", i)
		}

		cfg.Send = append(cfg.Send, Invocation{Method: method, Args: inv.Args})
	}

	return cfg, nil
}

// Targets чувствительны к регистру, поэтому только обрезаем пробелы и дубликаты.
func normalizeTargets(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))

	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		if _, ok := seen[target]; ok {
			continue
		}

		seen[target] = struct{}{}
		out = append(out, target)
	}

	return out
}
