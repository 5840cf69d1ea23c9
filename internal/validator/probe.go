package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
)

// probeRelay opens a WebSocket connection to candidateURL, sends a
// minimal REQ, and waits for any well-formed Nostr protocol message
// (EVENT/EOSE/NOTICE/OK/AUTH/CLOSED), per spec §4.6 step 4. Success iff the handshake
// and the response both land within timeout.
func probeRelay(ctx context.Context, candidateURL string, dial netdial.DialContextFunc, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &websocket.Dialer{
		NetDialContext:   dial,
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.DialContext(ctx, candidateURL, nil)
	if err != nil {
		return fmt.Errorf("websocket handshake: %w", err)
	}
	defer conn.Close()

	probeID := "validator-probe"
	req := fmt.Sprintf(`["REQ","%s",{"limit":0}]`, probeID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		return fmt.Errorf("sending probe REQ: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("reading probe response: %w", err)
	}

	return validateProtocolFrame(message)
}

// validateProtocolFrame checks that message is a JSON array whose first
// element is a recognized Nostr protocol verb.
func validateProtocolFrame(message []byte) error {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil || len(frame) == 0 {
		return fmt.Errorf("response is not a Nostr protocol frame")
	}
	var verb string
	if err := json.Unmarshal(frame[0], &verb); err != nil {
		return fmt.Errorf("response frame has no verb")
	}
	switch verb {
	case "EVENT", "EOSE", "NOTICE", "OK", "AUTH", "CLOSED":
		return nil
	default:
		return fmt.Errorf("unrecognized Nostr protocol verb %q", verb)
	}
}
