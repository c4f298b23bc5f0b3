package hub

import "context"

// Transport доставляет записи протокола. Callback, переданный в SetOnReceive,
// транспорт вызывает не более чем из одной горутины одновременно. Ошибка,
// возвращенная callback, означает, что соединение нужно считать разорванным.
type Transport interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, message string) error
	Stop(ctx context.Context) error
	SetOnReceive(callback func(payload string) error)
}

// AsyncTransport - транспорт с собственными неблокирующими вариантами операций.
type AsyncTransport interface {
	Transport
	StartAsync(ctx context.Context) <-chan error
	SendAsync(ctx context.Context, message string) <-chan error
	StopAsync(ctx context.Context) <-chan error
}

func startAsync(ctx context.Context, t Transport) <-chan error {
	if at, ok := t.(AsyncTransport); ok {
		return at.StartAsync(ctx)
	}

	return goAsync(func() error { return t.Start(ctx) })
}

func sendAsync(ctx context.Context, t Transport, message string) <-chan error {
	if at, ok := t.(AsyncTransport); ok {
		return at.SendAsync(ctx, message)
	}

	return goAsync(func() error { return t.Send(ctx, message) })
}

func stopAsync(ctx context.Context, t Transport) <-chan error {
	if at, ok := t.(AsyncTransport); ok {
		return at.StopAsync(ctx)
	}

	return goAsync(func() error { return t.Stop(ctx) })
}

func goAsync(fn func() error) <-chan error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- fn()
	}()

	return errCh
}
