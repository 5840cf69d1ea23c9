package synchronizer

import "github.com/sandwichfarm/nostr-observatory/internal/model"

// computeWindow derives the [since, until) range to request from one
// relay this cycle, per spec §4.8 step 4.
func computeWindow(cursor model.SynchronizerCursor, hasCursor bool, useRelayState bool, lookbackSeconds, defaultStart, now int64) (since, until int64) {
	until = now

	if useRelayState && hasCursor {
		since = cursor.Until - lookbackSeconds
		if since < defaultStart {
			since = defaultStart
		}
		return since, until
	}

	return defaultStart, until
}
