package monitor

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
	"github.com/sandwichfarm/nostr-observatory/internal/probe"
)

// checkRelay runs every enabled probe against one relay concurrently
// and assembles the results into a CheckResult, per spec §4.7 step 3.
func (m *Monitor) checkRelay(ctx context.Context, relay model.Relay, writeEnabled bool) probe.CheckResult {
	dial := m.dialers[relay.Network]
	netCfg := m.networks.Get(relay.Network)
	timeout := time.Duration(netCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	host := hostOf(relay.URL)
	compute := m.cfg.Processing.Compute

	var result probe.CheckResult
	group, gctx := errgroup.WithContext(ctx)

	if compute.NIP11 {
		group.Go(func() error {
			r, err := probe.FetchNIP11(gctx, relay.URL, dial, timeout)
			m.logProbe(relay.URL, "nip11", err)
			if err == nil {
				result.NIP11 = r
			}
			return nil
		})
	}
	if compute.RTT {
		group.Go(func() error {
			r, err := probe.MeasureRTT(gctx, relay.URL, dial, timeout, writeEnabled)
			m.logProbe(relay.URL, "rtt", err)
			if err == nil {
				result.RTT = r
			}
			return nil
		})
	}
	if compute.SSL && relay.Network == model.NetworkClearnet {
		group.Go(func() error {
			r, err := probe.InspectSSL(gctx, host, timeout)
			m.logProbe(relay.URL, "ssl", err)
			if err == nil {
				result.SSL = r
			}
			return nil
		})
	}
	if compute.Net && relay.Network == model.NetworkClearnet {
		group.Go(func() error {
			r, err := probe.LookupNet(gctx, host, nil, m.asnLookup)
			m.logProbe(relay.URL, "net", err)
			if err == nil {
				result.Net = r
			}
			return nil
		})
	}
	if compute.Geo && relay.Network == model.NetworkClearnet {
		group.Go(func() error {
			netResult, err := probe.LookupNet(gctx, host, nil, nil)
			if err != nil {
				m.logProbe(relay.URL, "geo", err)
				return nil
			}
			ip := netResult.IPv4
			if ip == "" {
				return nil
			}
			r, err := probe.LookupGeo(gctx, ip, m.geoLookup, m.cfg.GeohashPrecision)
			m.logProbe(relay.URL, "geo", err)
			if err == nil {
				result.Geo = r
			}
			return nil
		})
	}
	if compute.DNS && relay.Network == model.NetworkClearnet {
		group.Go(func() error {
			r, err := probe.MeasureDNS(gctx, host, "8.8.8.8:53", timeout)
			m.logProbe(relay.URL, "dns", err)
			if err == nil {
				result.DNS = r
			}
			return nil
		})
	}
	if compute.HTTP {
		group.Go(func() error {
			r, err := probe.FetchHTTPHeaders(gctx, relay.URL, dial, timeout)
			m.logProbe(relay.URL, "http", err)
			if err == nil {
				result.HTTP = r
			}
			return nil
		})
	}

	_ = group.Wait()
	return result
}

func (m *Monitor) logProbe(relayURL, probeName string, err error) {
	m.base.Logger.LogProbeResult(relayURL, probeName, 0, err)
}

func hostOf(relayURL string) string {
	u, err := url.Parse(relayURL)
	if err != nil {
		return relayURL
	}
	return u.Hostname()
}
