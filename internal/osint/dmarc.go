package osint

import (
	"context"
	"errors"
	"strings"

	"tilt-dashboard/internal/models"
)

const policySource = "DNS TXT record check"

type PolicyResult struct {
	Present models.Signal `json:"present"`
	Policy  string        `json:"policy,omitempty"`
	// Domain is where the winning record was published.
	Domain  string   `json:"domain,omitempty"`
	Checked []string `json:"checked"`
	Missing []string `json:"missing,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// PolicyResolver looks up DMARC records.
type PolicyResolver struct {
	resolver TXTResolver
}

func NewPolicyResolver(r TXTResolver) *PolicyResolver {
	return &PolicyResolver{resolver: r}
}

// Resolve checks the configured subdomains in order, or the primary domain
// when none are configured. The first valid record wins. The result is
// Present when any name publishes a record, Unknown when none do and at
// least one lookup failed, and Absent otherwise. An error is returned only
// for Unknown.
func (p *PolicyResolver) Resolve(ctx context.Context, primary string, subdomains []string) (PolicyResult, error) {
	names := NormalizeDomains(subdomains)
	if len(names) == 0 {
		if d := NormalizeDomain(primary); d != "" {
			names = []string{d}
		}
	}

	res := PolicyResult{Checked: names}
	var errs []error
	for _, name := range names {
		txts, err := p.resolver.LookupTXT(ctx, "_dmarc."+name)
		if err != nil {
			res.Failed = append(res.Failed, name)
			errs = append(errs, err)
			continue
		}
		policy, ok := firstDMARC(txts)
		if !ok {
			res.Missing = append(res.Missing, name)
			continue
		}
		if res.Domain == "" {
			res.Domain = name
			res.Policy = policy
		}
	}

	switch {
	case res.Domain != "":
		res.Present = models.SignalPresent
	case len(res.Failed) > 0:
		res.Present = models.SignalUnknown
		return res, &ProviderError{Provider: ProviderPolicy, Target: strings.Join(res.Failed, ","), Err: errors.Join(errs...)}
	case len(names) == 0:
		res.Present = models.SignalUnknown
		return res, &ProviderError{Provider: ProviderPolicy, Err: errors.New("no domain to check")}
	default:
		res.Present = models.SignalAbsent
	}
	return res, nil
}

func firstDMARC(txts []string) (string, bool) {
	for _, txt := range txts {
		if policy, ok := ParseDMARC(txt); ok {
			return policy, true
		}
	}
	return "", false
}

// ParseDMARC validates a DMARC TXT record and extracts its p= tag
// ("none" when the tag is missing).
func ParseDMARC(txt string) (string, bool) {
	txt = strings.TrimSpace(strings.Trim(strings.TrimSpace(txt), `"`))
	if !strings.HasPrefix(strings.ToLower(txt), "v=dmarc1") {
		return "", false
	}
	policy := "none"
	for _, tag := range strings.Split(txt, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(tag), "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "p") {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				policy = v
			}
		}
	}
	return policy, true
}
