package finder

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/sandwichfarm/nostr-observatory/internal/brotr"
	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

const cursorKey = "events"

// loadCursor reads the Finder's event-scan cursor, returning the zero
// cursor (scan from the beginning of time) if none exists yet.
func loadCursor(ctx context.Context, db *brotr.Brotr) (model.FinderEventCursor, error) {
	rows, err := db.GetServiceState(ctx, "finder", model.StateTypeCursor, strPtr(cursorKey))
	if err != nil {
		return model.FinderEventCursor{}, fmt.Errorf("loading finder cursor: %w", err)
	}
	if len(rows) == 0 {
		return model.FinderEventCursor{}, nil
	}
	return rows[0].EventCursor()
}

// saveCursor persists the event-scan cursor immediately, per spec §4.5's
// "checkpoint after each page, not only at cycle end" requirement.
func saveCursor(ctx context.Context, db *brotr.Brotr, cursor model.FinderEventCursor, now int64) error {
	state, err := model.NewServiceState("finder", model.StateTypeCursor, cursorKey, cursor, now)
	if err != nil {
		return fmt.Errorf("encoding finder cursor: %w", err)
	}
	if _, err := db.UpsertServiceState(ctx, []model.ServiceState{state}); err != nil {
		return fmt.Errorf("persisting finder cursor: %w", err)
	}
	return nil
}

// afterIDBytes decodes the cursor's hex event id for use as the $2
// parameter of FetchEventsForScan; an empty cursor yields an empty id,
// which lexicographically precedes every real event id.
func afterIDBytes(cursor model.FinderEventCursor) []byte {
	if cursor.LastIDHex == "" {
		return []byte{}
	}
	id, err := hex.DecodeString(cursor.LastIDHex)
	if err != nil {
		return []byte{}
	}
	return id
}

func strPtr(s string) *string { return &s }
