package hub

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

type ConnectionConfig struct {
	Protocol Protocol
	Logger   *slog.Logger
	// KeepAliveInterval - период отправки ping, 0 отключает keep-alive.
	KeepAliveInterval time.Duration
	// AwaitHandshake заставляет Start дождаться ответа сервера на handshake
	// до перехода в Connected.
	AwaitHandshake bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Protocol: NewJSONProtocol(),
		Logger:   slog.Default(),
	}
}

type HubConnection struct {
	id        string
	cfg       ConnectionConfig
	transport Transport
	protocol  Protocol
	callbacks *CallbackMap
	logger    *slog.Logger

	mu                sync.Mutex
	state             ConnectionState
	starting          bool
	stopping          bool
	handshakeReceived bool
	handshakeErr      error
	handshakeDone     chan struct{}
	closePending      bool
	closeReason       string
	keepAliveStop     chan struct{}
	onClosed          []func(error)

	// recvMu сериализует обработку входящих payload целиком.
	recvMu sync.Mutex
}

func NewHubConnection(transport Transport, cfg ConnectionConfig) *HubConnection {
	if cfg.Protocol == nil {
		cfg.Protocol = NewJSONProtocol()
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()

	return &HubConnection{
		id:        id,
		cfg:       cfg,
		transport: transport,
		protocol:  cfg.Protocol,
		callbacks: NewCallbackMap(),
		logger:    cfg.Logger.With("connection_id", id),
		state:     Disconnected,
	}
}

func (c *HubConnection) ID() string {
	return c.id
}

func (c *HubConnection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *HubConnection) Start(ctx context.Context) error {
	done, ok := c.beginStart()
	if !ok {
		return nil
	}

	return c.start(
		ctx,
		done,
		func() error { return c.transport.Start(ctx) },
		func(message string) error { return c.transport.Send(ctx, message) },
	)
}

func (c *HubConnection) StartAsync(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	done, ok := c.beginStart()
	if !ok {
		errCh <- nil
		return errCh
	}

	go func() {
		errCh <- c.start(
			ctx,
			done,
			func() error { return <-startAsync(ctx, c.transport) },
			func(message string) error { return <-sendAsync(ctx, c.transport, message) },
		)
	}()

	return errCh
}

func (c *HubConnection) beginStart() (chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Disconnected || c.starting {
		return nil, false
	}

	c.starting = true
	c.handshakeReceived = false
	c.handshakeErr = nil
	c.handshakeDone = make(chan struct{})
	c.closePending = false
	c.closeReason = ""

	return c.handshakeDone, true
}

func (c *HubConnection) start(
	ctx context.Context,
	done chan struct{},
	startTransport func() error,
	send func(message string) error,
) error {
	c.logger.Debug("starting hub connection")

	c.transport.SetOnReceive(c.Receive)

	if err := startTransport(); err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()

		return fmt.Errorf("failed to start transport: %w", err)
	}

	handshake, err := EncodeHandshakeRequest(HandshakeRequest{
		Protocol: c.protocol.Name(),
		Version:  c.protocol.Version(),
	})
	if err != nil {
		c.abortStart(ctx)
		return err
	}

	if err := send(handshake); err != nil {
		c.abortStart(ctx)
		return fmt.Errorf("failed to send handshake request: %w", err)
	}

	if c.cfg.AwaitHandshake {
		select {
		case <-done:
		case <-ctx.Done():
			c.abortStart(ctx)
			return ctx.Err()
		}
	}

	c.mu.Lock()

	// Ответ с ошибкой мог прийти раньше, чем мы дошли до этой точки.
	if err := c.handshakeErr; err != nil {
		c.mu.Unlock()
		c.abortStart(ctx)

		return err
	}

	c.starting = false
	c.state = Connected

	if c.cfg.KeepAliveInterval > 0 {
		c.keepAliveStop = make(chan struct{})
		go c.keepAlive(c.keepAliveStop, c.cfg.KeepAliveInterval)
	}

	pending, reason := c.closePending, c.closeReason
	c.closePending, c.closeReason = false, ""

	c.mu.Unlock()

	c.logger.Info("hub connection started")

	// Закрытие, пришедшее во время старта, выполняется после перехода в Connected.
	if pending {
		if err := c.stop(reason, c.stopTransport); err != nil {
			c.logger.Error("failed to stop connection", "error", err)
		}
	}

	return nil
}

func (c *HubConnection) abortStart(ctx context.Context) {
	if err := c.transport.Stop(ctx); err != nil {
		c.logger.Warn("failed to stop transport after unsuccessful start", "error", err)
	}

	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()
}

func (c *HubConnection) Stop(ctx context.Context) error {
	return c.stop("", func() error { return c.transport.Stop(ctx) })
}

func (c *HubConnection) StopAsync(ctx context.Context) <-chan error {
	return goAsync(func() error {
		return c.stop("", func() error { return <-stopAsync(ctx, c.transport) })
	})
}

// stop закрывает соединение; пустой reason означает закрытие без ошибки.
// Во время старта закрытие откладывается до перехода в Connected.
func (c *HubConnection) stop(reason string, stopTransport func() error) error {
	c.mu.Lock()

	if c.state == Disconnected && c.starting && !c.closePending {
		c.closePending = true
		c.closeReason = reason
		c.mu.Unlock()

		c.logger.Debug("deferring close until start completes")

		return nil
	}

	if c.state == Disconnected || c.stopping {
		c.mu.Unlock()
		return nil
	}

	c.stopping = true

	if c.keepAliveStop != nil {
		close(c.keepAliveStop)
		c.keepAliveStop = nil
	}

	c.mu.Unlock()

	if reason != "" {
		c.logger.Error("hub connection disconnected with an error", "error", reason)
	} else {
		c.logger.Debug("stopping hub connection")
	}

	stopErr := stopTransport()

	c.mu.Lock()
	c.state = Disconnected
	c.stopping = false
	observers := slices.Clone(c.onClosed)
	c.mu.Unlock()

	c.logger.Info("hub connection stopped")

	var closeErr error
	if reason != "" {
		closeErr = &HubError{Message: reason}
	}

	for _, observer := range observers {
		c.notifyClosed(observer, closeErr)
	}

	if stopErr != nil {
		return fmt.Errorf("failed to stop transport: %w", stopErr)
	}

	return nil
}

func (c *HubConnection) notifyClosed(observer func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("close observer panicked", "panic", r)
		}
	}()

	observer(err)
}

func (c *HubConnection) Send(ctx context.Context, method string, args ...any) error {
	message, err := c.prepareInvocation(method, args)
	if err != nil {
		return err
	}

	c.logger.Debug("sending message", "target", method)

	if err := c.transport.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send invocation: %w", err)
	}

	return nil
}

// SendAsync сразу возвращает ошибку состояния, а результат отправки - через канал.
func (c *HubConnection) SendAsync(ctx context.Context, method string, args ...any) (<-chan error, error) {
	message, err := c.prepareInvocation(method, args)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending message", "target", method)

	return sendAsync(ctx, c.transport, message), nil
}

func (c *HubConnection) prepareInvocation(method string, args []any) (string, error) {
	if c.State() != Connected {
		return "", fmt.Errorf(
			"%w: the 'send' method cannot be called if the connection is not active",
			ErrInvalidState,
		)
	}

	arguments, err := NewArguments(args...)
	if err != nil {
		return "", err
	}

	return c.protocol.WriteMessage(&InvocationMessage{
		Target:    method,
		Arguments: arguments,
	})
}

func (c *HubConnection) On(target string, handler Handler) *Subscription {
	c.logger.Debug("registering handler for client method", "target", target)
	return c.callbacks.Add(target, handler)
}

func (c *HubConnection) Remove(target string) {
	c.logger.Debug("removing handlers for client method", "target", target)
	c.callbacks.Remove(target)
}

func (c *HubConnection) OnClosed(observer func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = append(c.onClosed, observer)
}

// Receive - точка входа для транспорта. Ошибка из Receive фатальна:
// соединение закрывается, наблюдатели получают HubError с текстом ошибки.
func (c *HubConnection) Receive(payload string) error {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	c.mu.Lock()
	received := c.handshakeReceived
	c.mu.Unlock()

	if !received {
		rest, err := c.processHandshake(payload)
		if err != nil {
			return err
		}

		// Payload содержал только ответ на handshake.
		if rest == "" {
			return nil
		}

		payload = rest
	}

	messages, err := c.protocol.ParseMessages(payload)
	if err != nil {
		c.logger.Error("failed to parse messages", "error", err)
		return c.fail(err)
	}

	for _, msg := range messages {
		c.logger.Debug("received message", "type", msg.Type().String())

		switch m := msg.(type) {
		case *InvocationMessage:
			c.invoke(m)

		case *CloseMessage:
			c.logger.Info("close message received from server")

			if err := c.stop(m.Error, c.stopTransport); err != nil {
				c.logger.Error("failed to stop connection", "error", err)
			}

		case *PingMessage:

		default:
			c.logger.Error("message type is not supported by this client", "type", msg.Type().String())
			return c.fail(&UnsupportedMessageError{Type: msg.Type()})
		}
	}

	return nil
}

func (c *HubConnection) processHandshake(payload string) (string, error) {
	segment, rest, err := splitHandshake(payload)
	if err == nil {
		var resp HandshakeResponse

		resp, err = ParseHandshakeResponse(segment)
		if err == nil && resp.Error != "" {
			err = fmt.Errorf("%w: %s", ErrHandshake, resp.Error)
		}
	}

	if err != nil {
		c.logger.Error("error in handshake", "error", err)
		c.settleHandshake(err)

		return "", c.fail(err)
	}

	c.settleHandshake(nil)

	return rest, nil
}

func (c *HubConnection) settleHandshake(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.handshakeErr = err
	} else {
		c.handshakeReceived = true
	}

	if c.handshakeDone != nil {
		close(c.handshakeDone)
		c.handshakeDone = nil
	}
}

// fail закрывает соединение из-за ошибки обработки payload и возвращает ее.
func (c *HubConnection) fail(err error) error {
	if stopErr := c.stop(err.Error(), c.stopTransport); stopErr != nil {
		c.logger.Error("failed to stop connection", "error", stopErr)
	}

	return err
}

func (c *HubConnection) stopTransport() error {
	return c.transport.Stop(context.Background())
}

func (c *HubConnection) invoke(msg *InvocationMessage) {
	handlers, ok := c.callbacks.Get(msg.Target)
	if !ok {
		c.logger.Warn("failed to find handler for target", "target", msg.Target)
		return
	}

	c.logger.Debug("invoking handlers", "target", msg.Target, "count", len(handlers))

	for _, handler := range handlers {
		handler(msg.Arguments)
	}
}

func (c *HubConnection) keepAlive(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ping, err := c.protocol.WriteMessage(&PingMessage{})
	if err != nil {
		c.logger.Error("failed to encode ping message", "error", err)
		return
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.transport.Send(context.Background(), ping); err != nil {
				c.logger.Warn("failed to send ping", "error", err)
			}
		}
	}
}
