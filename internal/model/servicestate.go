package model

import (
	"encoding/json"
	"fmt"
)

// ServiceState PK components, spec §3.
const (
	StateTypeCandidate  = "candidate"
	StateTypeCursor     = "cursor"
	StateTypeCheckpoint = "checkpoint"
)

// ServiceState is the generic cross-service KV row (spec §3). Its
// state_value is open JSON, interpreted by the owning service; callers
// outside this package should never touch RawValue directly — use the
// typed accessors below (ValidatorCandidate, FinderEventCursor,
// SynchronizerCursor), per the "do not leak the raw table shape" note in
// spec §9.
type ServiceState struct {
	ServiceName string
	StateType   string
	StateKey    string
	RawValue    json.RawMessage
	UpdatedAt   int64
}

// NewServiceState marshals value into a ServiceState row.
func NewServiceState(service, stateType, key string, value interface{}, updatedAt int64) (ServiceState, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ServiceState{}, fmt.Errorf("marshaling service_state value: %w", err)
	}
	return ServiceState{
		ServiceName: service,
		StateType:   stateType,
		StateKey:    key,
		RawValue:    raw,
		UpdatedAt:   updatedAt,
	}, nil
}

// ValidatorCandidate is the shape written under
// (service_name="validator", state_type="candidate", state_key=<url>) by
// the Seeder and Finder, and read/deleted by the Validator — the one
// documented cross-service contract on this table (spec §3).
type ValidatorCandidate struct {
	Network        string `json:"network"`
	FailedAttempts int    `json:"failed_attempts"`
}

// Candidate unmarshals s.RawValue as a ValidatorCandidate.
func (s ServiceState) Candidate() (ValidatorCandidate, error) {
	var c ValidatorCandidate
	if err := json.Unmarshal(s.RawValue, &c); err != nil {
		return ValidatorCandidate{}, fmt.Errorf("decoding validator candidate state: %w", err)
	}
	return c, nil
}

// FinderEventCursor is the Finder's event-scan composite cursor, stored
// at (finder, cursor, events).
type FinderEventCursor struct {
	LastTimestamp int64  `json:"last_timestamp"`
	LastIDHex     string `json:"last_id_hex"`
}

// EventCursor unmarshals s.RawValue as a FinderEventCursor.
func (s ServiceState) EventCursor() (FinderEventCursor, error) {
	var c FinderEventCursor
	if err := json.Unmarshal(s.RawValue, &c); err != nil {
		return FinderEventCursor{}, fmt.Errorf("decoding finder event cursor: %w", err)
	}
	return c, nil
}

// SynchronizerCursor is the per-relay window already ingested, stored at
// (synchronizer, cursor, <relay_url>).
type SynchronizerCursor struct {
	Since int64 `json:"since"`
	Until int64 `json:"until"`
}

// SyncCursor unmarshals s.RawValue as a SynchronizerCursor.
func (s ServiceState) SyncCursor() (SynchronizerCursor, error) {
	var c SynchronizerCursor
	if err := json.Unmarshal(s.RawValue, &c); err != nil {
		return SynchronizerCursor{}, fmt.Errorf("decoding synchronizer cursor: %w", err)
	}
	return c, nil
}
