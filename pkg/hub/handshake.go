package hub

import (
	"encoding/json"
	"fmt"
	"strings"
)

type HandshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

type HandshakeResponse struct {
	Error string `json:"error,omitempty"`
}

func EncodeHandshakeRequest(req HandshakeRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal handshake request: %w", err)
	}

	return string(data) + RecordSeparator, nil
}

func ParseHandshakeResponse(segment string) (HandshakeResponse, error) {
	var resp HandshakeResponse

	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return resp, fmt.Errorf("%w: empty segment", ErrHandshakeParse)
	}

	if !strings.HasPrefix(trimmed, "{") {
		return resp, fmt.Errorf("%w: expected a JSON object", ErrHandshakeParse)
	}

	if err := json.Unmarshal([]byte(segment), &resp); err != nil {
		return resp, fmt.Errorf("%w: %w", ErrHandshakeParse, err)
	}

	return resp, nil
}

// splitHandshake отделяет ответ на handshake от остальной части payload.
func splitHandshake(payload string) (segment, rest string, err error) {
	idx := strings.Index(payload, RecordSeparator)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: missing record separator", ErrHandshakeParse)
	}

	return payload[:idx], payload[idx+len(RecordSeparator):], nil
}
