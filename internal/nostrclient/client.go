// Package nostrclient wraps nbd-wtf/go-nostr's SimplePool with the
// fetch/subscribe/publish/auth surface spec §6.3 names as consumed
// interfaces, adapted from the teacher's internal/nostr/client.go.
package nostrclient

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/sandwichfarm/nostr-observatory/internal/ops"
)

// Client is a high-level interface for interacting with Nostr relays.
type Client struct {
	pool   *nostr.SimplePool
	logger *ops.Logger
}

// New creates a new Nostr client.
func New(ctx context.Context, logger *ops.Logger) *Client {
	return &Client{
		pool:   nostr.NewSimplePool(ctx),
		logger: logger,
	}
}

// Pool returns the underlying SimplePool for advanced operations.
func (c *Client) Pool() *nostr.SimplePool { return c.pool }

// FetchEvents fetches events from the given relays matching the filter,
// waiting for EOSE on every relay before returning.
func (c *Client) FetchEvents(ctx context.Context, relays []string, filter nostr.Filter) ([]*nostr.Event, error) {
	events := make([]*nostr.Event, 0)
	for relayEvent := range c.pool.SubManyEose(ctx, relays, nostr.Filters{filter}) {
		if relayEvent.Event != nil {
			events = append(events, relayEvent.Event)
		}
	}
	return events, nil
}

// FetchEvent fetches a single event by id from the given relays.
func (c *Client) FetchEvent(ctx context.Context, relays []string, eventID string) (*nostr.Event, error) {
	result := c.pool.QuerySingle(ctx, relays, nostr.Filter{IDs: []string{eventID}})
	if result == nil || result.Event == nil {
		return nil, fmt.Errorf("event not found: %s", eventID)
	}
	return result.Event, nil
}

// PublishEvent publishes an event to the given relays, per spec §4.7's
// at-least-once publication requirement: success on any relay is enough.
func (c *Client) PublishEvent(ctx context.Context, relays []string, event *nostr.Event) error {
	results := c.pool.PublishMany(ctx, relays, *event)

	var lastErr error
	successCount := 0
	for result := range results {
		if result.Error != nil {
			lastErr = result.Error
			c.logger.LogRelayConnection(result.RelayURL, false, result.Error)
		} else {
			successCount++
		}
	}

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("failed to publish to any relay: %w", lastErr)
	}
	return nil
}

// SubscribeEvents subscribes to events matching filters on the given
// relays. The returned channel is closed when the context is cancelled.
func (c *Client) SubscribeEvents(ctx context.Context, relays []string, filters nostr.Filters) <-chan *nostr.Event {
	eventChan := make(chan *nostr.Event, 100)

	go func() {
		defer close(eventChan)

		c.logger.Debug("subscribing", "relay_count", len(relays), "filter_count", len(filters))

		for relayEvent := range c.pool.SubMany(ctx, relays, filters) {
			if relayEvent.Event == nil {
				continue
			}
			select {
			case eventChan <- relayEvent.Event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return eventChan
}

// Close closes all relay connections.
func (c *Client) Close() { c.pool.Close("client shutting down") }

// Authenticate performs NIP-42 AUTH against relayURL using signer, for
// relays that challenge reads/writes. The Synchronizer calls this before
// syncing when a signing key is configured; relays that never send AUTH
// simply ignore the attempt.
func (c *Client) Authenticate(ctx context.Context, relayURL string, signer *Signer) error {
	relay, err := c.pool.EnsureRelay(relayURL)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", relayURL, err)
	}
	if err := relay.Auth(ctx, signer.Sign); err != nil {
		return fmt.Errorf("nip-42 auth with %s: %w", relayURL, err)
	}
	return nil
}

// LoadSigner parses a signing key from either 64 hex characters or a
// bech32 nsec1... string, per spec §6.3/§6.4.
func LoadSigner(raw string) (nostr.Signer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty signing key")
	}

	if strings.HasPrefix(raw, "nsec1") {
		_, data, err := nip19.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding nsec key: %w", err)
		}
		sk, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected nsec payload type")
		}
		return &Signer{privateKey: sk}, nil
	}

	if _, err := hex.DecodeString(raw); err != nil || len(raw) != 64 {
		return nil, fmt.Errorf("expected 64 hex characters or nsec1..., got %d characters", len(raw))
	}
	return &Signer{privateKey: raw}, nil
}

// Signer wraps a hex-encoded secp256k1 private key and signs events via
// go-nostr's own signing helpers.
type Signer struct {
	privateKey string
}

// Sign fills in ev.ID, ev.PubKey, ev.Sig for the given event.
func (s *Signer) Sign(ev *nostr.Event) error {
	return ev.Sign(s.privateKey)
}

// PublicKey returns the hex-encoded public key derived from the signer's
// private key.
func (s *Signer) PublicKey() (string, error) {
	return nostr.GetPublicKey(s.privateKey)
}
