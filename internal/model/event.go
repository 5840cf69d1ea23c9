package model

import (
	"encoding/hex"
	"fmt"

	nostr "github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/nostr-observatory/internal/apperrors"
)

// Event is a Nostr protocol event (spec §3). Immutable once constructed;
// created by the Synchronizer from a verified library event, never
// mutated thereafter.
type Event struct {
	ID        []byte // 32 bytes
	Pubkey    []byte // 32 bytes
	CreatedAt int64
	Kind      int
	Tags      [][]string
	Content   string
	Sig       []byte // 64 bytes

	// TagValues is the derived, single-character-tag second-element list
	// the database computes via tags_to_tagvalues, mirrored in process by
	// EventFromNostr. Events read back from the database leave it empty.
	TagValues []string
}

// EventFromNostr converts a library event into the internal Event type,
// per the "duck-typed event objects" note in spec §9: verification (id
// hash + Schnorr signature) happens here, at the library boundary, and
// only the verified internal struct crosses into persistence code.
func EventFromNostr(ev *nostr.Event) (Event, error) {
	if ev == nil {
		return Event{}, apperrors.NewValidationError("event", fmt.Errorf("nil event"))
	}

	ok, err := ev.CheckSignature()
	if err != nil {
		return Event{}, apperrors.NewValidationError("event.sig", fmt.Errorf("checking signature: %w", err))
	}
	if !ok {
		return Event{}, apperrors.NewValidationError("event.sig", fmt.Errorf("signature does not verify"))
	}
	if ev.GetID() != ev.ID {
		return Event{}, apperrors.NewValidationError("event.id", fmt.Errorf("id does not match event hash"))
	}

	id, err := hex.DecodeString(ev.ID)
	if err != nil || len(id) != 32 {
		return Event{}, apperrors.NewValidationError("event.id", fmt.Errorf("expected 32-byte hex id"))
	}
	pubkey, err := hex.DecodeString(ev.PubKey)
	if err != nil || len(pubkey) != 32 {
		return Event{}, apperrors.NewValidationError("event.pubkey", fmt.Errorf("expected 32-byte hex pubkey"))
	}
	sig, err := hex.DecodeString(ev.Sig)
	if err != nil || len(sig) != 64 {
		return Event{}, apperrors.NewValidationError("event.sig", fmt.Errorf("expected 64-byte hex signature"))
	}

	tags := make([][]string, len(ev.Tags))
	for i, t := range ev.Tags {
		tags[i] = []string(t)
	}

	return Event{
		ID:        id,
		Pubkey:    pubkey,
		CreatedAt: int64(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       sig,
		TagValues: tagValues(tags),
	}, nil
}

// tagValues mirrors the database's tags_to_tagvalues generated column: for
// every tag whose key is a single character, collect the second element.
func tagValues(tags [][]string) []string {
	var out []string
	for _, t := range tags {
		if len(t) >= 2 && len(t[0]) == 1 {
			out = append(out, t[1])
		}
	}
	return out
}

// IDHex returns the lowercase hex encoding of the event id.
func (e Event) IDHex() string { return hex.EncodeToString(e.ID) }
