package finder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

func TestExtractURLsKind2ReadsContent(t *testing.T) {
	ev := model.Event{Kind: 2, Content: "wss://relay.example.com"}
	assert.Equal(t, []string{"wss://relay.example.com"}, ExtractURLs(ev))
}

func TestExtractURLsKind2EmptyContentYieldsNothing(t *testing.T) {
	ev := model.Event{Kind: 2, Content: ""}
	assert.Empty(t, ExtractURLs(ev))
}

func TestExtractURLsKind3ParsesContactListKeys(t *testing.T) {
	ev := model.Event{Kind: 3, Content: `{"wss://a.example.com":{},"wss://b.example.com":{}}`}
	urls := ExtractURLs(ev)
	assert.ElementsMatch(t, []string{"wss://a.example.com", "wss://b.example.com"}, urls)
}

func TestExtractURLsKind3MalformedContentYieldsNothing(t *testing.T) {
	ev := model.Event{Kind: 3, Content: "not json"}
	assert.Empty(t, ExtractURLs(ev))
}

func TestExtractURLsRTagsOnAnyKind(t *testing.T) {
	ev := model.Event{
		Kind: 10002,
		Tags: [][]string{{"r", "wss://relay.example.com"}, {"p", "deadbeef"}},
	}
	assert.Equal(t, []string{"wss://relay.example.com"}, ExtractURLs(ev))
}

func TestExtractURLsCombinesContentAndTags(t *testing.T) {
	ev := model.Event{
		Kind:    2,
		Content: "wss://from-content.example.com",
		Tags:    [][]string{{"r", "wss://from-tag.example.com"}},
	}
	urls := ExtractURLs(ev)
	assert.ElementsMatch(t, []string{"wss://from-content.example.com", "wss://from-tag.example.com"}, urls)
}
