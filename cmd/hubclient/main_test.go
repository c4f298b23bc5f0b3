package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/hub"
	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/hub/hubtest"
)

func TestRunSendsAndStopsOnServerClose(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scfg := hubtest.DefaultServerConfig()
	scfg.Logger = logger
	server := hubtest.NewServer(scfg)

	joined := make(chan string, 1)
	server.Handle("join", func(args hub.Arguments) {
		var room string
		_ = args.Bind(&room)
		joined <- room
	})

	ts := httptest.NewServer(server)
	defer ts.Close()

	cfg := defaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(ts.URL, "http")
	cfg.Subscribe = []string{"message"}
	cfg.Send = []Invocation{{Method: "join", Args: []any{"general"}}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- run(ctx, cfg, logger)
	}()

	select {
	case room := <-joined:
		if room != "general" {
			t.Errorf("unexpected room: %q", room)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("join invocation did not reach the server")
	}

	if err := server.Invoke("message", "hi"); err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	if err := server.Close(""); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected clean shutdown, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after server close")
	}
}

func TestRunInterrupted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scfg := hubtest.DefaultServerConfig()
	scfg.Logger = logger

	server := hubtest.NewServer(scfg)

	ts := httptest.NewServer(server)
	defer ts.Close()

	cfg := defaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(ts.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		result <- run(ctx, cfg, logger)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()

	if err := server.WaitConnected(waitCtx); err != nil {
		t.Fatalf("client did not connect: %v", err)
	}

	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected nil error on interrupt, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunStartFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := defaultConfig()
	cfg.URL = "ws://127.0.0.1:1/"

	if err := run(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected start error")
	}
}
