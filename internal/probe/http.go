package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sandwichfarm/nostr-observatory/internal/netdial"
)

var capturedHeaders = []string{"Server", "Content-Type", "X-Powered-By", "Via", "Date"}

// FetchHTTPHeaders performs a plain HTTP(S) GET against the relay's
// upgrade endpoint and reports the status code and a fixed set of
// response headers, per NIP-66's `http` measurement.
func FetchHTTPHeaders(ctx context.Context, relayURL string, dial netdial.DialContextFunc, timeout time.Duration) (*HTTPResult, error) {
	httpURL := toHTTPURL(relayURL)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building http probe request: %w", err)
	}

	client := &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   timeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http probe request: %w", err)
	}
	defer resp.Body.Close()

	headers := make(map[string]string)
	for _, name := range capturedHeaders {
		if v := resp.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	return &HTTPResult{StatusCode: resp.StatusCode, Headers: headers}, nil
}
