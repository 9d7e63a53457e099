package osint

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	LeakListURL      string
	LeakSnapshotPath string
	LeakTTL          time.Duration
	LeakFetchTimeout time.Duration
	LeakInterval     time.Duration
	LeakMaxQueue     time.Duration

	CacheSize       int
	CacheTTL        time.Duration
	ProviderTimeout time.Duration
	DNSServer       string
}

// New wires the aggregator to the real network: HTTP for the leak list,
// miekg/dns for TXT records and a TLS handshake for certificates.
func New(cfg Config, log logrus.FieldLogger) (*Aggregator, error) {
	metrics := NewMetrics()
	clock := SystemClock

	cache, err := NewEvidenceCache(cfg.CacheSize, cfg.CacheTTL, clock)
	if err != nil {
		return nil, err
	}

	throttle := NewThrottle(cfg.LeakInterval, 1, cfg.LeakMaxQueue, clock)
	list := NewLeakList(LeakListConfig{
		URL:          cfg.LeakListURL,
		SnapshotPath: cfg.LeakSnapshotPath,
		TTL:          cfg.LeakTTL,
		FetchTimeout: cfg.LeakFetchTimeout,
	}, NewHTTPClient(), throttle, clock, metrics, log)

	resolver := NewDNSResolver(cfg.DNSServer, cfg.ProviderTimeout)
	log.WithField("resolver", resolver.Server()).Debug("using DNS resolver")

	return NewAggregator(Opts{
		Leaks:        NewLeakLookup(list),
		Certificates: NewCertificateInspector(TLSPeeker{}, clock),
		Policy:       NewPolicyResolver(resolver),
		Cache:        cache,
		Clock:        clock,
		Timeouts: Timeouts{
			Leak:        leakProviderTimeout(cfg),
			Certificate: cfg.ProviderTimeout,
			Policy:      cfg.ProviderTimeout,
		},
		Metrics: metrics,
		Logger:  log,
	})
}

// leakProviderTimeout leaves room for the throttle queue on top of the
// download itself.
func leakProviderTimeout(cfg Config) time.Duration {
	fetch := cfg.LeakFetchTimeout
	if fetch <= 0 {
		fetch = defaultLeakFetchTimeout
	}
	return fetch + cfg.LeakMaxQueue
}
