package hub_test

import (
	"errors"
	"testing"

	"github.com/LLIEPJIOK/service-mesh/hubclient/pkg/hub"
)

func TestEncodeHandshakeRequest(t *testing.T) {
	got, err := hub.EncodeHandshakeRequest(hub.HandshakeRequest{Protocol: "json", Version: 1})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if got != `{"protocol":"json","version":1}`+rs {
		t.Errorf("unexpected handshake request: %q", got)
	}
}

func TestParseHandshakeResponse(t *testing.T) {
	resp, err := hub.ParseHandshakeResponse("{}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if resp.Error != "" {
		t.Errorf("expected no error, got %q", resp.Error)
	}

	resp, err = hub.ParseHandshakeResponse(`{"error":"unsupported"}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if resp.Error != "unsupported" {
		t.Errorf("expected error 'unsupported', got %q", resp.Error)
	}

	// Неизвестные поля допустимы.
	if _, err := hub.ParseHandshakeResponse(`{"minorVersion":1}`); err != nil {
		t.Errorf("unexpected error for extra fields: %v", err)
	}
}

func TestParseHandshakeResponse_Malformed(t *testing.T) {
	for _, segment := range []string{"", "   ", "null", "[]", "{", `"text"`} {
		if _, err := hub.ParseHandshakeResponse(segment); !errors.Is(err, hub.ErrHandshakeParse) {
			t.Errorf("segment %q: expected handshake parse error, got: %v", segment, err)
		}
	}
}
