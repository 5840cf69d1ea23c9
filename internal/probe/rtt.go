package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
)

// MeasureRTT times the WebSocket handshake, a first-message read, and
// (if writeEnabled) a REQ write + response round trip, per NIP-66.
// writeEnabled is false whenever the Monitor has no signing key
// configured, per spec §4.7.
func MeasureRTT(ctx context.Context, relayURL string, dial netdial.DialContextFunc, timeout time.Duration, writeEnabled bool) (*RTTResult, error) {
	dialer := &websocket.Dialer{
		NetDialContext:   dial,
		HandshakeTimeout: timeout,
	}

	openStart := time.Now()
	conn, _, err := dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	defer conn.Close()
	openMS := time.Since(openStart).Milliseconds()

	result := &RTTResult{OpenMS: openMS}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	readStart := time.Now()
	if _, _, err := conn.ReadMessage(); err == nil {
		result.ReadMS = time.Since(readStart).Milliseconds()
	}

	if writeEnabled {
		writeStart := time.Now()
		probe := fmt.Sprintf(`["REQ","%s",{"limit":1}]`, "rtt-probe")
		if err := conn.WriteMessage(websocket.TextMessage, []byte(probe)); err == nil {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
			if _, _, err := conn.ReadMessage(); err == nil {
				result.WriteMS = time.Since(writeStart).Milliseconds()
			}
		}
	}

	return result, nil
}
