package hub

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState       = errors.New("invalid connection state")
	ErrHandshake          = errors.New("handshake rejected")
	ErrHandshakeParse     = errors.New("malformed handshake response")
	ErrProtocolParse      = errors.New("malformed protocol message")
	ErrUnsupportedMessage = errors.New("unsupported message type")
)

// UnsupportedMessageError возвращается из Receive для сообщений,
// которые клиент распознает, но не обрабатывает (стримы, отмена, completion).
type UnsupportedMessageError struct {
	Type MessageType
}

func (e *UnsupportedMessageError) Error() string {
	return fmt.Sprintf("the message type %s is not supported", e.Type)
}

func (e *UnsupportedMessageError) Unwrap() error {
	return ErrUnsupportedMessage
}

// HubError передается наблюдателям закрытия, когда соединение закрылось с причиной.
type HubError struct {
	Message string
}

func (e *HubError) Error() string {
	return "hub connection closed with an error: " + e.Message
}
