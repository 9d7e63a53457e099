package osint

import (
	"net"
	"strings"
	"time"
)

// Clock is injected wherever freshness or throttling depends on time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = realClock{}

// NormalizeDomain lower-cases a domain and strips scheme, credentials,
// path, port and trailing dot: "HTTPS://Example.com:443/x" -> "example.com".
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if host, _, err := net.SplitHostPort(d); err == nil {
		d = host
	}
	return strings.TrimSuffix(d, ".")
}

// NormalizeDomains normalizes, drops empties and de-duplicates, keeping order.
func NormalizeDomains(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		d := NormalizeDomain(r)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
