package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
)

// FetchNIP11 requests the relay information document over HTTPS, per
// NIP-11, using the same dial function the WebSocket probes use so the
// request routes through the correct proxy for overlay networks.
func FetchNIP11(ctx context.Context, relayURL string, dial netdial.DialContextFunc, timeout time.Duration) (*NIP11Result, error) {
	httpURL := toHTTPURL(relayURL)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building nip-11 request: %w", err)
	}
	req.Header.Set("Accept", "application/nostr+json")

	client := &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   timeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching nip-11 document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nip-11 fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading nip-11 body: %w", err)
	}

	var doc struct {
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		Pubkey        string   `json:"pubkey"`
		Contact       string   `json:"contact"`
		SupportedNIPs []int    `json:"supported_nips"`
		Software      string   `json:"software"`
		Version       string   `json:"version"`
		Language      []string `json:"language_tags"`
		Tags          []string `json:"tags"`
		Requirements  []string `json:"limitation_requirements"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing nip-11 document: %w", err)
	}

	return &NIP11Result{
		Name:          doc.Name,
		Description:   doc.Description,
		Pubkey:        doc.Pubkey,
		Contact:       doc.Contact,
		SupportedNIPs: doc.SupportedNIPs,
		Software:      doc.Software,
		Version:       doc.Version,
		Language:      doc.Language,
		Tags:          doc.Tags,
		Requirements:  doc.Requirements,
	}, nil
}

// toHTTPURL converts a ws(s):// relay URL to its http(s) equivalent for
// the NIP-11 and raw-header HTTP probes.
func toHTTPURL(relayURL string) string {
	switch {
	case strings.HasPrefix(relayURL, "wss://"):
		return "https://" + strings.TrimPrefix(relayURL, "wss://")
	case strings.HasPrefix(relayURL, "ws://"):
		return "http://" + strings.TrimPrefix(relayURL, "ws://")
	default:
		return relayURL
	}
}
