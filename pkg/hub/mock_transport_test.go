package hub_test

import (
	"context"
	"errors"
	"sync"
)

const rs = "\u001e"

var errMockTransport = errors.New("mock transport failure")

// mockTransport запоминает отправленные записи и синхронно
// передает payload в зарегистрированный callback.
type mockTransport struct {
	mu        sync.Mutex
	onReceive func(payload string) error
	sent      []string
	started   int
	stopped   int
	startErr  error
	sendErr   error
	stopErr   error
}

func (t *mockTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started++
	return t.startErr
}

func (t *mockTransport) Send(ctx context.Context, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sendErr != nil {
		return t.sendErr
	}

	t.sent = append(t.sent, message)
	return nil
}

func (t *mockTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped++
	return t.stopErr
}

func (t *mockTransport) SetOnReceive(callback func(payload string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReceive = callback
}

func (t *mockTransport) receive(payload string) error {
	t.mu.Lock()
	cb := t.onReceive
	t.mu.Unlock()

	return cb(payload)
}

func (t *mockTransport) sentMessages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *mockTransport) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// asyncMockTransport дополнительно реализует hub.AsyncTransport.
type asyncMockTransport struct {
	mockTransport
	asyncCalls []string
}

func (t *asyncMockTransport) StartAsync(ctx context.Context) <-chan error {
	t.record("start")
	return done(t.Start(ctx))
}

func (t *asyncMockTransport) SendAsync(ctx context.Context, message string) <-chan error {
	t.record("send")
	return done(t.Send(ctx, message))
}

func (t *asyncMockTransport) StopAsync(ctx context.Context) <-chan error {
	t.record("stop")
	return done(t.Stop(ctx))
}

func (t *asyncMockTransport) record(call string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.asyncCalls = append(t.asyncCalls, call)
}

func (t *asyncMockTransport) calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.asyncCalls...)
}

// hookTransport вызывает onHandshake из Send handshake-запроса,
// пока Start еще не перевел соединение в Connected.
type hookTransport struct {
	mockTransport
	onHandshake func()
	once        sync.Once
}

func (t *hookTransport) Send(ctx context.Context, message string) error {
	if err := t.mockTransport.Send(ctx, message); err != nil {
		return err
	}

	if t.onHandshake != nil {
		t.once.Do(t.onHandshake)
	}

	return nil
}

func done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}
