package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RecordSeparator разделяет записи внутри одного payload.
const RecordSeparator = "\u001e"

type Protocol interface {
	Name() string
	Version() int
	ParseMessages(payload string) ([]Message, error)
	WriteMessage(msg Message) (string, error)
}

type JSONProtocol struct{}

func NewJSONProtocol() *JSONProtocol {
	return &JSONProtocol{}
}

func (*JSONProtocol) Name() string { return "json" }

func (*JSONProtocol) Version() int { return 1 }

func (*JSONProtocol) TransferFormat() string { return "Text" }

func (p *JSONProtocol) ParseMessages(payload string) ([]Message, error) {
	if payload == "" {
		return nil, nil
	}

	if !strings.HasSuffix(payload, RecordSeparator) {
		return nil, fmt.Errorf("%w: incomplete record", ErrProtocolParse)
	}

	records := strings.Split(payload, RecordSeparator)
	messages := make([]Message, 0, len(records))

	for _, record := range records {
		if record == "" {
			continue
		}

		msg, err := decodeRecord([]byte(record))
		if err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

func (p *JSONProtocol) WriteMessage(msg Message) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("%w: nil message", ErrProtocolParse)
	}

	data, err := encodeRecord(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s message: %w", msg.Type(), err)
	}

	return string(data) + RecordSeparator, nil
}

type envelope struct {
	Type *MessageType `json:"type"`
}

func decodeRecord(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocolParse, err)
	}

	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing message type", ErrProtocolParse)
	}

	if !env.Type.valid() {
		return nil, fmt.Errorf("%w: unknown message type %d", ErrProtocolParse, int(*env.Type))
	}

	var msg Message

	switch *env.Type {
	case InvocationType:
		msg = &InvocationMessage{}
	case StreamItemType:
		msg = &StreamItemMessage{}
	case CompletionType:
		msg = &CompletionMessage{}
	case StreamInvocationType:
		msg = &StreamInvocationMessage{}
	case CancelInvocationType:
		msg = &CancelInvocationMessage{}
	case PingType:
		return &PingMessage{}, nil
	case CloseType:
		msg = &CloseMessage{}
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProtocolParse, *env.Type, err)
	}

	return msg, nil
}

func encodeRecord(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	// Дописываем дискриминатор в начало объекта: {"type":N,...}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"type":%d`, int(msg.Type()))

	inner := bytes.TrimSpace(body)
	inner = bytes.TrimPrefix(inner, []byte("{"))
	if len(inner) > 1 {
		buf.WriteByte(',')
	}
	buf.Write(inner)

	return buf.Bytes(), nil
}
