package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/hub"
	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/ws"
)

var (
	errInterrupted     = errors.New("interrupted")
	errServerClosed    = errors.New("server closed the connection")
	errTransportClosed = errors.New("transport closed")
)

func main() {
	configPath := flag.String("config", "hubclient.toml", "path to TOML config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("hubclient stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	tlsCfg, err := ws.TLSConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load tls config: %w", err)
	}

	tcfg := ws.DefaultTransportConfig(cfg.URL)
	tcfg.TLS = tlsCfg
	tcfg.Logger = logger
	transport := ws.NewTransport(tcfg)

	ccfg := hub.DefaultConnectionConfig()
	ccfg.Logger = logger
	ccfg.KeepAliveInterval = cfg.KeepAlive
	ccfg.AwaitHandshake = cfg.AwaitHandshake

	conn := hub.NewHubConnection(transport, ccfg)

	for _, target := range cfg.Subscribe {
		conn.On(target, logInvocation(logger, target))
	}

	closed := make(chan error, 1)
	conn.OnClosed(func(err error) {
		select {
		case closed <- err:
		default:
		}
	})

	if err := conn.Start(ctx); err != nil {
		return fmt.Errorf("start hub connection: %w", err)
	}

	for _, inv := range cfg.Send {
		if err := conn.Send(ctx, inv.Method, inv.Args...); err != nil {
			_ = conn.Stop(context.Background())
			return fmt.Errorf("send %s: %w", inv.Method, err)
		}

		logger.Info("invocation sent", "target", inv.Method)
	}

	err = wait(ctx, transport, closed)

	if stopErr := conn.Stop(context.Background()); stopErr != nil {
		logger.Warn("failed to stop hub connection", "error", stopErr)
	}

	// Штатное закрытие без причины ошибкой не считается.
	switch err {
	case errInterrupted, errServerClosed, errTransportClosed:
		logger.Info("hubclient finished", "reason", err.Error())
		return nil
	}

	return err
}

// wait блокируется до сигнала, закрытия соединения сервером или падения транспорта.
func wait(ctx context.Context, transport *ws.Transport, closed <-chan error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			return errInterrupted
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-closed:
			if err != nil {
				return fmt.Errorf("%w: %w", errServerClosed, err)
			}
			return errServerClosed
		}
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-transport.Done():
			if err := transport.Err(); err != nil {
				return fmt.Errorf("%w: %w", errTransportClosed, err)
			}
			return errTransportClosed
		}
	})

	return g.Wait()
}

func logInvocation(logger *slog.Logger, target string) hub.Handler {
	return func(args hub.Arguments) {
		values := make([]string, 0, args.Len())
		for _, arg := range args {
			values = append(values, string(arg))
		}

		logger.Info("invocation received", "target", target, "args", values)
	}
}
