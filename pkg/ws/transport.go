package ws

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type TransportConfig struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	TLS              *tls.Config
	Logger           *slog.Logger
}

func DefaultTransportConfig(wsURL string) TransportConfig {
	return TransportConfig{
		URL:              wsURL,
		HandshakeTimeout: 45 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   1 << 20,
		Logger:           slog.Default(),
	}
}

// Transport - WebSocket-транспорт для hub.HubConnection. Каждый текстовый
// фрейм передается в callback целиком, вызовы callback не пересекаются.
type Transport struct {
	cfg    TransportConfig
	dialer websocket.Dialer
	logger *slog.Logger

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	onReceive func(payload string) error
	recvMu    sync.RWMutex

	done     chan struct{}
	err      error
	closed   bool
	closedMu sync.RWMutex
}

func NewTransport(cfg TransportConfig) *Transport {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Transport{
		cfg: cfg,
		// Диалер без HTTP_PROXY
		dialer: websocket.Dialer{
			Proxy:            nil,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  cfg.TLS,
		},
		logger: cfg.Logger,
		done:   make(chan struct{}),
	}
}

func (t *Transport) SetOnReceive(callback func(payload string) error) {
	t.recvMu.Lock()
	defer t.recvMu.Unlock()
	t.onReceive = callback
}

func (t *Transport) Start(ctx context.Context) error {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		return ErrAlreadyStarted
	}

	t.logger.Info("connecting to server", slog.String("url", u.String()))

	conn, _, err := t.dialer.DialContext(ctx, u.String(), t.cfg.Header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	if t.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(t.cfg.MaxMessageSize)
	}

	t.conn = conn

	t.closedMu.Lock()
	t.closed = false
	t.err = nil
	t.done = make(chan struct{})
	done := t.done
	t.closedMu.Unlock()

	t.logger.Info("connected to server", "url", u.String())

	go t.readLoop(conn, done)

	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !t.IsClosed() && websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				t.logger.Error("read error", "error", err)
			}

			t.markClosed(nil)

			return
		}

		t.recvMu.RLock()
		cb := t.onReceive
		t.recvMu.RUnlock()

		if cb == nil {
			t.logger.Warn("dropping payload, no receiver registered", "size", len(data))
			continue
		}

		if err := cb(string(data)); err != nil {
			t.logger.Error("failed to process payload", "error", err)
			t.markClosed(err)
			t.closeConn()

			return
		}
	}
}

func (t *Transport) markClosed(err error) {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()

	if err != nil && t.err == nil {
		t.err = err
	}

	t.closed = true
}

func (t *Transport) Send(ctx context.Context, message string) error {
	if t.IsClosed() {
		return ErrConnectionClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		return ErrNotStarted
	}

	// Нулевой deadline снимает ограничение.
	var deadline time.Time
	if t.cfg.WriteTimeout > 0 {
		deadline = time.Now().Add(t.cfg.WriteTimeout)
	}

	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	_ = conn.SetWriteDeadline(deadline)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Stop закрывает соединение и не ждет завершения readLoop: Stop может
// вызываться изнутри callback.
func (t *Transport) Stop(ctx context.Context) error {
	t.markClosed(nil)
	return t.closeConn()
}

func (t *Transport) closeConn() error {
	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
	t.writeMu.Unlock()

	return conn.Close()
}

// Done закрывается, когда readLoop завершился.
func (t *Transport) Done() <-chan struct{} {
	t.closedMu.RLock()
	defer t.closedMu.RUnlock()
	return t.done
}

// Err возвращает ошибку обработки payload, из-за которой транспорт закрылся.
func (t *Transport) Err() error {
	t.closedMu.RLock()
	defer t.closedMu.RUnlock()
	return t.err
}

func (t *Transport) IsClosed() bool {
	t.closedMu.RLock()
	defer t.closedMu.RUnlock()
	return t.closed
}
