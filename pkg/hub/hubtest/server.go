// Package hubtest предоставляет hub-сервер для тестов клиента: принимает
// handshake, маршрутизирует вызовы клиента и умеет отправлять клиенту
// произвольные записи.
package hubtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/hub"
)

var ErrNoClient = errors.New("no client connected")

type Handler func(args hub.Arguments)

type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	// HandshakeError, если задан, отправляется клиенту вместо успешного ответа.
	HandshakeError string
	Logger         *slog.Logger
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
		Logger:          slog.Default(),
	}
}

type Server struct {
	upgrader       websocket.Upgrader
	handlers       map[string]Handler
	mu             sync.RWMutex
	logger         *slog.Logger
	protocol       *hub.JSONProtocol
	handshakeError string

	conn      *websocket.Conn
	connMu    sync.RWMutex
	writeMu   sync.Mutex
	connected chan struct{}
	once      sync.Once

	received   []string
	handshakes []hub.HandshakeRequest
	recMu      sync.Mutex
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		handlers:       make(map[string]Handler),
		logger:         cfg.Logger,
		protocol:       hub.NewJSONProtocol(),
		handshakeError: cfg.HandshakeError,
		connected:      make(chan struct{}),
	}
}

func (s *Server) Handle(target string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[target] = handler
}

func (s *Server) getHandler(target string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[target]
	return h, ok
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("client connected", "remote_addr", conn.RemoteAddr())
	defer s.logger.Info("client disconnected", "remote_addr", conn.RemoteAddr())

	if err := s.performHandshake(conn); err != nil {
		s.logger.Error("handshake failed", "error", err, "remote_addr", conn.RemoteAddr())
		return
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.once.Do(func() { close(s.connected) })

	s.handleConnection(conn)

	s.connMu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.connMu.Unlock()
}

func (s *Server) performHandshake(conn *websocket.Conn) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read handshake request: %w", err)
	}

	record, _, ok := strings.Cut(string(data), hub.RecordSeparator)
	if !ok {
		return errors.New("handshake request is not terminated")
	}

	var req hub.HandshakeRequest
	if err := json.Unmarshal([]byte(record), &req); err != nil {
		return fmt.Errorf("failed to unmarshal handshake request: %w", err)
	}

	s.recMu.Lock()
	s.handshakes = append(s.handshakes, req)
	s.recMu.Unlock()

	resp, err := json.Marshal(hub.HandshakeResponse{Error: s.handshakeError})
	if err != nil {
		return fmt.Errorf("failed to marshal handshake response: %w", err)
	}

	s.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, append(resp, hub.RecordSeparator...))
	s.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send handshake response: %w", err)
	}

	if s.handshakeError != "" {
		return fmt.Errorf("handshake rejected: %s", s.handshakeError)
	}

	return nil
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				s.logger.Error("read error", "error", err)
			}

			return
		}

		messages, err := s.protocol.ParseMessages(string(data))
		if err != nil {
			s.logger.Error("failed to parse messages", "error", err)
			continue
		}

		s.recMu.Lock()
		for _, record := range strings.Split(string(data), hub.RecordSeparator) {
			if record != "" {
				s.received = append(s.received, record)
			}
		}
		s.recMu.Unlock()

		for _, msg := range messages {
			inv, ok := msg.(*hub.InvocationMessage)
			if !ok {
				continue
			}

			handler, ok := s.getHandler(inv.Target)
			if !ok {
				s.logger.Warn("no handler for target", "target", inv.Target)
				continue
			}

			handler(inv.Arguments)
		}
	}
}

// WaitConnected ждет первого клиента, прошедшего handshake.
func (s *Server) WaitConnected(ctx context.Context) error {
	select {
	case <-s.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push отправляет клиенту payload как есть, одним текстовым фреймом.
func (s *Server) Push(payload string) error {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil {
		return ErrNoClient
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (s *Server) Invoke(target string, args ...any) error {
	arguments, err := hub.NewArguments(args...)
	if err != nil {
		return err
	}

	return s.write(&hub.InvocationMessage{Target: target, Arguments: arguments})
}

func (s *Server) Close(reason string) error {
	return s.write(&hub.CloseMessage{Error: reason})
}

func (s *Server) write(msg hub.Message) error {
	payload, err := s.protocol.WriteMessage(msg)
	if err != nil {
		return err
	}

	return s.Push(payload)
}

// Received возвращает записи, полученные после handshake, без разделителя.
func (s *Server) Received() []string {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *Server) Handshakes() []hub.HandshakeRequest {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	return append([]hub.HandshakeRequest(nil), s.handshakes...)
}
