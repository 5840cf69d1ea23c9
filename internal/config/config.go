// Package config loads and validates the YAML configuration shared by all
// five observatory services.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root document. A running service only cares about its own
// sub-section plus the shared Pool/Networks/Logging/Metrics blocks, but all
// services parse the same file so operators ship one config per deployment.
type Config struct {
	Pool         Pool         `yaml:"pool" validate:"required"`
	Networks     Networks     `yaml:"networks"`
	Logging      Logging      `yaml:"logging"`
	Metrics      Metrics      `yaml:"metrics"`
	Seeder       Seeder       `yaml:"seeder"`
	Finder       Finder       `yaml:"finder"`
	Validator    Validator    `yaml:"validator"`
	Monitor      Monitor      `yaml:"monitor"`
	Synchronizer Synchronizer `yaml:"synchronizer"`
}

// Pool configures the shared PostgreSQL connection pool (internal/dbpool).
type Pool struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	Database string `yaml:"database" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	// Password is read from the DB_PASSWORD env var, never from YAML.
	Password string `yaml:"-"`

	MinSize int `yaml:"min_size" validate:"gte=0"`
	MaxSize int `yaml:"max_size" validate:"gt=0"`

	AcquisitionTimeoutSeconds int `yaml:"acquisition_timeout_seconds" validate:"gt=0"`
	HealthCheckTimeoutSeconds int `yaml:"health_check_timeout_seconds" validate:"gt=0"`

	Timeouts Timeouts `yaml:"timeouts"`
	Retry    Retry    `yaml:"retry"`
	Batch    Batch    `yaml:"batch"`
}

// Timeouts bounds individual query shapes, per spec §5.
type Timeouts struct {
	QuerySeconds   int `yaml:"query_seconds" validate:"gt=0"`
	BatchSeconds   int `yaml:"batch_seconds" validate:"gt=0"`
	CleanupSeconds int `yaml:"cleanup_seconds" validate:"gt=0"`
}

// Retry configures the backoff policy for pool connect and acquire_healthy.
type Retry struct {
	MaxAttempts         int     `yaml:"max_attempts" validate:"gt=0"`
	InitialDelaySeconds float64 `yaml:"initial_delay_seconds" validate:"gt=0"`
	MaxDelaySeconds     float64 `yaml:"max_delay_seconds" validate:"gt=0"`
	ExponentialBackoff  bool    `yaml:"exponential_backoff"`
}

// Batch controls auto-chunking of bulk Brotr calls.
type Batch struct {
	MaxSize int `yaml:"max_size" validate:"gt=0"`
}

// Networks is the shared per-network dialing policy consumed by Validator,
// Monitor, and Synchronizer.
type Networks struct {
	Clearnet Network `yaml:"clearnet"`
	Tor      Network `yaml:"tor"`
	I2P      Network `yaml:"i2p"`
	Loki     Network `yaml:"loki"`
}

// Network is one entry of the shared networks block (spec §6.4).
type Network struct {
	Enabled        bool   `yaml:"enabled"`
	ProxyURL       string `yaml:"proxy_url"`
	MaxTasks       int    `yaml:"max_tasks" validate:"gte=0"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
}

// Get returns the network policy by name, or a disabled zero value if the
// name isn't one of clearnet/tor/i2p/loki.
func (n Networks) Get(name string) Network {
	switch name {
	case "clearnet":
		return n.Clearnet
	case "tor":
		return n.Tor
	case "i2p":
		return n.I2P
	case "loki":
		return n.Loki
	default:
		return Network{}
	}
}

// Names returns the fixed set of network identifiers in stable order.
func Names() []string { return []string{"clearnet", "tor", "i2p", "loki"} }

// Logging mirrors the teacher's ops.Logger configuration shape.
type Logging struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Metrics configures the Prometheus exposition endpoint, also used as the
// container health-check surface per spec §7.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// ServiceCommon fields are shared by every per-service config block, per
// spec §6.4 ("interval, max_consecutive_failures, metrics, ...").
type ServiceCommon struct {
	IntervalSeconds        int `yaml:"interval_seconds" validate:"gte=60"`
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" validate:"gte=0"`
}

// Seeder config: spec §4.4.
type Seeder struct {
	ServiceCommon `yaml:",inline"`
	SeedFile      string `yaml:"seed_file"`
	ToValidate    bool   `yaml:"to_validate"`
}

// Finder config: spec §4.5.
type Finder struct {
	ServiceCommon `yaml:",inline"`
	Events        FinderEvents  `yaml:"events"`
	Discovery     FinderAPIScan `yaml:"discovery"`
}

// FinderEvents configures the event-scan source.
type FinderEvents struct {
	Enabled   bool  `yaml:"enabled"`
	Kinds     []int `yaml:"kinds"`
	BatchSize int   `yaml:"batch_size" validate:"gt=0"`
}

// FinderAPIScan configures the HTTP API-scan source.
type FinderAPIScan struct {
	Enabled                bool           `yaml:"enabled"`
	APIs                   []DiscoveryAPI `yaml:"apis"`
	DelayBetweenRequestsMs int            `yaml:"delay_between_requests_ms" validate:"gte=0"`
}

// DiscoveryAPI is one configured HTTP relay-list source.
type DiscoveryAPI struct {
	Name           string `yaml:"name" validate:"required"`
	URL            string `yaml:"url" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`
}

// Validator config: spec §4.6.
type Validator struct {
	ServiceCommon `yaml:",inline"`
	ChunkSize     int     `yaml:"chunk_size" validate:"gt=0"`
	MaxCandidates int     `yaml:"max_candidates" validate:"gte=0"`
	MaxFailures   int     `yaml:"max_failures" validate:"gt=0"`
	Cleanup       Cleanup `yaml:"cleanup"`
}

// Cleanup toggles the Validator's stale/exhausted candidate deletion pass.
type Cleanup struct {
	Enabled bool `yaml:"enabled"`
}

// Monitor config: spec §4.7.
type Monitor struct {
	ServiceCommon    `yaml:",inline"`
	ChunkSize        int                 `yaml:"chunk_size" validate:"gt=0"`
	MaxRelays        int                 `yaml:"max_relays" validate:"gte=0"`
	Announcement     MonitorAnnouncement `yaml:"announcement"`
	Processing       MonitorProcessing   `yaml:"processing"`
	GeohashPrecision int                 `yaml:"geohash_precision" validate:"gte=1,lte=12"`
}

// MonitorAnnouncement paces the optional kind-10166 publish.
type MonitorAnnouncement struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds" validate:"gte=0"`
	Publish30166    bool `yaml:"publish_30166"`
}

// MonitorProcessing holds the compute/store probe toggles. Validate enforces
// store ⊆ compute, the invariant named explicitly in spec §4.7.
type MonitorProcessing struct {
	Compute ProbeToggles `yaml:"compute"`
	Store   ProbeToggles `yaml:"store"`
}

// ProbeToggles names the 7 probes of spec §4.7.
type ProbeToggles struct {
	NIP11 bool `yaml:"nip11_info"`
	RTT   bool `yaml:"nip66_rtt"`
	SSL   bool `yaml:"nip66_ssl"`
	Geo   bool `yaml:"nip66_geo"`
	Net   bool `yaml:"nip66_net"`
	DNS   bool `yaml:"nip66_dns"`
	HTTP  bool `yaml:"nip66_http"`
}

// Subset reports whether every probe enabled in s is also enabled in other.
func (s ProbeToggles) Subset(other ProbeToggles) bool {
	checks := []struct{ a, b bool }{
		{s.NIP11, other.NIP11}, {s.RTT, other.RTT}, {s.SSL, other.SSL},
		{s.Geo, other.Geo}, {s.Net, other.Net}, {s.DNS, other.DNS}, {s.HTTP, other.HTTP},
	}
	for _, c := range checks {
		if c.a && !c.b {
			return false
		}
	}
	return true
}

// Synchronizer config: spec §4.8.
type Synchronizer struct {
	ServiceCommon       `yaml:",inline"`
	UseRelayState       bool         `yaml:"use_relay_state"`
	LookbackSeconds     int64        `yaml:"lookback_seconds" validate:"gte=0"`
	DefaultStart        int64        `yaml:"default_start"`
	StaggerDelaySeconds int          `yaml:"stagger_delay_seconds" validate:"gte=0"`
	CursorFlushInterval int          `yaml:"cursor_flush_interval" validate:"gt=0"`
	Filter              SyncFilter   `yaml:"filter"`
	SyncTimeouts        SyncTimeouts `yaml:"sync_timeouts"`
}

// SyncFilter bounds the REQ filter sent to each relay.
type SyncFilter struct {
	Kinds   []int    `yaml:"kinds"`
	Authors []string `yaml:"authors"`
	Limit   int      `yaml:"limit" validate:"gt=0"`
}

// SyncTimeouts bounds per-relay sync duration by network, spec §4.8 step 6.
type SyncTimeouts struct {
	RelayClearnetSeconds int `yaml:"relay_clearnet_seconds" validate:"gt=0"`
	RelayTorSeconds      int `yaml:"relay_tor_seconds" validate:"gt=0"`
	RelayI2PSeconds      int `yaml:"relay_i2p_seconds" validate:"gt=0"`
	RelayLokiSeconds     int `yaml:"relay_loki_seconds" validate:"gt=0"`
}

// ForNetwork returns the configured per-relay sync timeout for network.
func (s SyncTimeouts) ForNetwork(network string) int {
	switch network {
	case "tor":
		return s.RelayTorSeconds
	case "i2p":
		return s.RelayI2PSeconds
	case "loki":
		return s.RelayLokiSeconds
	default:
		return s.RelayClearnetSeconds
	}
}

var validate = validator.New()

// Load reads path, applies defaults, overlays environment variables, and
// validates the result. Mirrors the teacher's Load/applyDefaults/Validate
// pipeline in internal/config/config.go.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Pool.Password = os.Getenv("DB_PASSWORD")
}

// Default returns a Config with every field set to a sane operational
// default, the way the teacher's config.Default() does for its own fields.
func Default() *Config {
	return &Config{
		Pool: Pool{
			Port:                      5432,
			MinSize:                   1,
			MaxSize:                   10,
			AcquisitionTimeoutSeconds: 10,
			HealthCheckTimeoutSeconds: 5,
			Timeouts: Timeouts{
				QuerySeconds:   30,
				BatchSeconds:   120,
				CleanupSeconds: 300,
			},
			Retry: Retry{
				MaxAttempts:         5,
				InitialDelaySeconds: 1,
				MaxDelaySeconds:     30,
				ExponentialBackoff:  true,
			},
			Batch: Batch{MaxSize: 500},
		},
		Networks: Networks{
			Clearnet: Network{Enabled: true, MaxTasks: 20, TimeoutSeconds: 10},
			Tor:      Network{Enabled: false, MaxTasks: 5, TimeoutSeconds: 30},
			I2P:      Network{Enabled: false, MaxTasks: 5, TimeoutSeconds: 30},
			Loki:     Network{Enabled: false, MaxTasks: 5, TimeoutSeconds: 30},
		},
		Logging: Logging{Level: "info", Format: "text"},
		Metrics: Metrics{Enabled: true, Host: "0.0.0.0", Port: 9100, Path: "/metrics"},
		Seeder: Seeder{
			ServiceCommon: ServiceCommon{IntervalSeconds: 60, MaxConsecutiveFailures: 0},
			ToValidate:    true,
		},
		Finder: Finder{
			ServiceCommon: ServiceCommon{IntervalSeconds: 3600, MaxConsecutiveFailures: 5},
			Events:        FinderEvents{Enabled: true, Kinds: []int{2, 3, 10002}, BatchSize: 500},
			Discovery:     FinderAPIScan{Enabled: false, DelayBetweenRequestsMs: 1000},
		},
		Validator: Validator{
			ServiceCommon: ServiceCommon{IntervalSeconds: 8 * 3600, MaxConsecutiveFailures: 5},
			ChunkSize:     100,
			MaxFailures:   5,
			Cleanup:       Cleanup{Enabled: true},
		},
		Monitor: Monitor{
			ServiceCommon:    ServiceCommon{IntervalSeconds: 3600, MaxConsecutiveFailures: 5},
			ChunkSize:        50,
			GeohashPrecision: 5,
			Processing: MonitorProcessing{
				Compute: ProbeToggles{NIP11: true, RTT: true, SSL: true, Geo: true, Net: true, DNS: true, HTTP: true},
				Store:   ProbeToggles{NIP11: true, RTT: true, SSL: true, Geo: true, Net: true, DNS: true, HTTP: true},
			},
		},
		Synchronizer: Synchronizer{
			ServiceCommon:       ServiceCommon{IntervalSeconds: 900, MaxConsecutiveFailures: 5},
			UseRelayState:       true,
			LookbackSeconds:     300,
			StaggerDelaySeconds: 5,
			CursorFlushInterval: 10,
			Filter:              SyncFilter{Limit: 500},
			SyncTimeouts: SyncTimeouts{
				RelayClearnetSeconds: 1800,
				RelayTorSeconds:      3600,
				RelayI2PSeconds:      3600,
				RelayLokiSeconds:     3600,
			},
		},
	}
}

// Validate runs struct-tag validation plus the hand-written invariant
// checks the validator library cannot express (store ⊆ compute, password
// present). Mirrors the teacher's two-phase Validate(cfg).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if strings.TrimSpace(cfg.Pool.Password) == "" {
		return fmt.Errorf("config validation: DB_PASSWORD is required")
	}

	if !cfg.Monitor.Processing.Store.Subset(cfg.Monitor.Processing.Compute) {
		return fmt.Errorf("config validation: monitor.processing.store must be a subset of monitor.processing.compute")
	}

	return nil
}
