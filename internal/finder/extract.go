package finder

import (
	"encoding/json"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

// ExtractURLs pulls candidate relay URLs out of one event, per spec
// §4.5's per-kind extraction rules.
func ExtractURLs(ev model.Event) []string {
	var urls []string

	switch ev.Kind {
	case 2:
		if ev.Content != "" {
			urls = append(urls, ev.Content)
		}
	case 3:
		urls = append(urls, extractContactListRelays(ev.Content)...)
	}

	urls = append(urls, extractRTags(ev.Tags)...)

	return urls
}

// extractContactListRelays decodes a kind-3 content body, whose keys are
// relay URLs, per NIP-02's legacy relay-list convention.
func extractContactListRelays(content string) []string {
	if content == "" {
		return nil
	}
	var relayMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &relayMap); err != nil {
		return nil
	}
	urls := make([]string, 0, len(relayMap))
	for url := range relayMap {
		urls = append(urls, url)
	}
	return urls
}

// extractRTags collects the second element of every "r" tag, present on
// kind 10002 (NIP-65 relay list) and usable on any other kind too.
func extractRTags(tags [][]string) []string {
	var urls []string
	for _, t := range tags {
		if len(t) >= 2 && t[0] == "r" {
			urls = append(urls, t[1])
		}
	}
	return urls
}
