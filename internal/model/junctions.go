package model

import (
	"encoding/hex"
	"fmt"

	"github.com/sandwichfarm/nostr-observatory/internal/apperrors"
)

// EventRelay is the many-to-many junction between an Event and the Relay
// that yielded it (spec §3). PK (event_id, relay_url); never mutated.
type EventRelay struct {
	EventID  []byte
	RelayURL string
	SeenAt   int64
}

// NewEventRelay validates and constructs an EventRelay row.
func NewEventRelay(eventID []byte, relayURL string, seenAt int64) (EventRelay, error) {
	if len(eventID) != 32 {
		return EventRelay{}, apperrors.NewValidationError("event_relay.event_id", fmt.Errorf("expected 32-byte event id"))
	}
	if relayURL == "" {
		return EventRelay{}, apperrors.NewValidationError("event_relay.relay_url", fmt.Errorf("empty relay url"))
	}
	return EventRelay{EventID: eventID, RelayURL: relayURL, SeenAt: seenAt}, nil
}

// EventIDHex returns the lowercase hex encoding of the event id.
func (er EventRelay) EventIDHex() string { return hex.EncodeToString(er.EventID) }

// MetadataType enumerates the 7 probe document types of spec §3/§4.7.
type MetadataType string

const (
	MetadataNIP11Info MetadataType = "nip11_info"
	MetadataNIP66RTT  MetadataType = "nip66_rtt"
	MetadataNIP66SSL  MetadataType = "nip66_ssl"
	MetadataNIP66Geo  MetadataType = "nip66_geo"
	MetadataNIP66Net  MetadataType = "nip66_net"
	MetadataNIP66DNS  MetadataType = "nip66_dns"
	MetadataNIP66HTTP MetadataType = "nip66_http"
)

// Metadata is a content-addressed probe result document (spec §3). PK is
// (id, type) where id = sha256(canonical(value)). Identical documents of
// the same type collapse to one row.
type Metadata struct {
	ID    []byte
	Type  MetadataType
	Value interface{}
}

// NewMetadata hashes value's canonical JSON form and constructs the
// Metadata row; the hash is always recomputed here, never trusted from a
// caller, satisfying the invariant in spec §3.
func NewMetadata(mtype MetadataType, value interface{}) (Metadata, error) {
	id, err := ContentHash(value)
	if err != nil {
		return Metadata{}, apperrors.NewValidationError("metadata.value", err)
	}
	return Metadata{ID: id, Type: mtype, Value: value}, nil
}

// IDHex returns the lowercase hex encoding of the metadata id.
func (m Metadata) IDHex() string { return hex.EncodeToString(m.ID) }

// RelayMetadata is one time-series snapshot linking a relay to a Metadata
// document (spec §3). PK (relay_url, generated_at, metadata_type).
type RelayMetadata struct {
	RelayURL     string
	GeneratedAt  int64
	MetadataType MetadataType
	MetadataID   []byte
}

// NewRelayMetadata constructs a RelayMetadata row from an already-hashed
// Metadata document.
func NewRelayMetadata(relayURL string, generatedAt int64, md Metadata) (RelayMetadata, error) {
	if relayURL == "" {
		return RelayMetadata{}, apperrors.NewValidationError("relay_metadata.relay_url", fmt.Errorf("empty relay url"))
	}
	return RelayMetadata{
		RelayURL:     relayURL,
		GeneratedAt:  generatedAt,
		MetadataType: md.Type,
		MetadataID:   md.ID,
	}, nil
}
