package hub

import (
	"encoding/json"
	"fmt"
)

type MessageType int

const (
	InvocationType       MessageType = 1
	StreamItemType       MessageType = 2
	CompletionType       MessageType = 3
	StreamInvocationType MessageType = 4
	CancelInvocationType MessageType = 5
	PingType             MessageType = 6
	CloseType            MessageType = 7
)

func (t MessageType) String() string {
	switch t {
	case InvocationType:
		return "Invocation"
	case StreamItemType:
		return "StreamItem"
	case CompletionType:
		return "Completion"
	case StreamInvocationType:
		return "StreamInvocation"
	case CancelInvocationType:
		return "CancelInvocation"
	case PingType:
		return "Ping"
	case CloseType:
		return "Close"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

func (t MessageType) valid() bool {
	return t >= InvocationType && t <= CloseType
}

type Message interface {
	Type() MessageType
}

type InvocationMessage struct {
	InvocationID string    `json:"invocationId,omitempty"`
	Target       string    `json:"target"`
	Arguments    Arguments `json:"arguments"`
}

func (*InvocationMessage) Type() MessageType { return InvocationType }

type StreamItemMessage struct {
	InvocationID string          `json:"invocationId"`
	Item         json.RawMessage `json:"item,omitempty"`
}

func (*StreamItemMessage) Type() MessageType { return StreamItemType }

type CompletionMessage struct {
	InvocationID string          `json:"invocationId"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func (*CompletionMessage) Type() MessageType { return CompletionType }

type StreamInvocationMessage struct {
	InvocationID string    `json:"invocationId"`
	Target       string    `json:"target"`
	Arguments    Arguments `json:"arguments"`
}

func (*StreamInvocationMessage) Type() MessageType { return StreamInvocationType }

type CancelInvocationMessage struct {
	InvocationID string `json:"invocationId"`
}

func (*CancelInvocationMessage) Type() MessageType { return CancelInvocationType }

type PingMessage struct{}

func (*PingMessage) Type() MessageType { return PingType }

type CloseMessage struct {
	Error string `json:"error,omitempty"`
}

func (*CloseMessage) Type() MessageType { return CloseType }

// Arguments - позиционные аргументы вызова в сыром JSON виде.
type Arguments []json.RawMessage

func NewArguments(values ...any) (Arguments, error) {
	args := make(Arguments, 0, len(values))

	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal argument %d: %w", i, err)
		}

		args = append(args, data)
	}

	return args, nil
}

func (a Arguments) Len() int {
	return len(a)
}

// Bind раскладывает аргументы по позициям в dst. Лишние аргументы игнорируются,
// nil в dst пропускает соответствующую позицию.
func (a Arguments) Bind(dst ...any) error {
	if len(dst) > len(a) {
		return fmt.Errorf("expected at least %d arguments, got %d", len(dst), len(a))
	}

	for i, v := range dst {
		if v == nil {
			continue
		}

		if err := json.Unmarshal(a[i], v); err != nil {
			return fmt.Errorf("failed to unmarshal argument %d: %w", i, err)
		}
	}

	return nil
}

func (a Arguments) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]json.RawMessage(a))
}
