package osint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tilt-dashboard/internal/models"
)

// Target is what one scan looks at.
type Target struct {
	VendorName      string
	PrimaryDomain   string
	DMARCSubdomains []string
}

func (t Target) normalized() Target {
	return Target{
		VendorName:      strings.TrimSpace(t.VendorName),
		PrimaryDomain:   NormalizeDomain(t.PrimaryDomain),
		DMARCSubdomains: NormalizeDomains(t.DMARCSubdomains),
	}
}

type ScanOptions struct {
	// Force skips cached evidence and refreshes the leak list. It still goes
	// through the leak list throttle and can fail with ErrRateLimited.
	Force bool
}

type Timeouts struct {
	Leak        time.Duration
	Certificate time.Duration
	Policy      time.Duration
}

const defaultProviderTimeout = 5 * time.Second

type Opts struct {
	Leaks        *LeakLookup
	Certificates *CertificateInspector
	Policy       *PolicyResolver
	Cache        *EvidenceCache
	Clock        Clock
	Timeouts     Timeouts
	Metrics      *Metrics
	Logger       logrus.FieldLogger
}

// Aggregator runs the evidence providers for a target and merges their
// answers into one EvidenceBundle.
type Aggregator struct {
	leaks    *LeakLookup
	certs    *CertificateInspector
	policy   *PolicyResolver
	cache    *EvidenceCache
	clock    Clock
	timeouts Timeouts
	metrics  *Metrics
	log      logrus.FieldLogger
}

func NewAggregator(o Opts) (*Aggregator, error) {
	if o.Leaks == nil || o.Certificates == nil || o.Policy == nil {
		return nil, errors.New("osint: all evidence providers are required")
	}
	if o.Logger == nil {
		return nil, errors.New("osint: logger is required")
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}
	if o.Cache == nil {
		c, err := NewEvidenceCache(1024, 6*time.Hour, o.Clock)
		if err != nil {
			return nil, err
		}
		o.Cache = c
	}
	for _, d := range []*time.Duration{&o.Timeouts.Leak, &o.Timeouts.Certificate, &o.Timeouts.Policy} {
		if *d <= 0 {
			*d = defaultProviderTimeout
		}
	}
	return &Aggregator{
		leaks:    o.Leaks,
		certs:    o.Certificates,
		policy:   o.Policy,
		cache:    o.Cache,
		clock:    o.Clock,
		timeouts: o.Timeouts,
		metrics:  o.Metrics,
		log:      o.Logger.WithField("component", "osint"),
	}, nil
}

func (a *Aggregator) Metrics() *Metrics { return a.metrics }

type leakOutcome struct {
	ran bool
	res LeakResult
}

type certOutcome struct {
	ran bool
	res CertResult
	err error
}

type policyOutcome struct {
	ran bool
	res PolicyResult
	err error
}

// Scan queries all providers concurrently, each under its own timeout, and
// always returns a bundle: a provider that fails leaves its signal unknown
// and adds a degraded warning. The only errors are ErrRateLimited for a
// forced scan and the caller's context being done.
func (a *Aggregator) Scan(ctx context.Context, target Target, opts ScanOptions) (*models.EvidenceBundle, error) {
	start := time.Now()
	t := target.normalized()
	log := a.log.WithFields(logrus.Fields{"vendor": t.VendorName, "domain": t.PrimaryDomain, "force": opts.Force})

	mode := "cached"
	refreshFailed := false
	if opts.Force {
		mode = "forced"
		if err := a.leaks.list.Refresh(ctx); err != nil {
			if errors.Is(err, ErrRateLimited) {
				a.metrics.RateLimited.Inc()
				log.WithError(err).Info("forced scan rate limited")
				return nil, err
			}
			log.WithError(err).Warn("forced leak list refresh failed")
			refreshFailed = true
		}
	}
	a.metrics.ScansTotal.WithLabelValues(mode).Inc()

	var (
		leak   leakOutcome
		cert   certOutcome
		policy policyOutcome
		g      errgroup.Group
	)
	g.Go(func() error {
		leak = a.scanLeak(ctx, t, opts.Force, refreshFailed)
		return nil
	})
	g.Go(func() error {
		cert = a.scanCertificate(ctx, t, opts.Force)
		return nil
	})
	g.Go(func() error {
		policy = a.scanPolicy(ctx, t, opts.Force)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &models.EvidenceBundle{
		ScanID:    uuid.NewString(),
		ScannedAt: a.clock.Now(),
		Warnings:  []models.Warning{},
	}
	applyLeak(b, t, leak)
	applyCertificate(b, t, cert)
	applyPolicy(b, policy)

	a.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"scan_id":    b.ScanID,
		"ransomware": b.Ransomware.Found,
		"cert_grade": b.Certificate.Grade,
		"dmarc":      b.EmailPolicy.Present,
		"warnings":   len(b.Warnings),
	}).Info("osint scan complete")
	return b, nil
}

// scanLeak never reports a clean result it could not confirm: a lookup that
// times out falls back to the list in memory, and a failed forced refresh
// marks the result stale.
func (a *Aggregator) scanLeak(ctx context.Context, t Target, force, refreshFailed bool) leakOutcome {
	if t.VendorName == "" && t.PrimaryDomain == "" {
		return leakOutcome{}
	}
	key := t.PrimaryDomain + "|" + strings.ToLower(t.VendorName)
	if !force {
		if r, ok := a.cache.leaks.Get(key); ok {
			a.metrics.CacheHits.WithLabelValues(ProviderLeak).Inc()
			return leakOutcome{ran: true, res: r}
		}
	}

	res, err := runWithTimeout(ctx, a.timeouts.Leak, func(ctx context.Context) (LeakResult, error) {
		return a.leaks.Check(ctx, t.VendorName, t.PrimaryDomain), nil
	})
	if err != nil {
		a.log.WithError(err).WithField("provider", ProviderLeak).Warn("leak lookup did not finish, matching the list in memory")
		res = a.leaks.CheckHeld(t.VendorName, t.PrimaryDomain)
	}
	if refreshFailed {
		res.Stale = true
	}
	if res.Stale {
		a.metrics.ProviderFailures.WithLabelValues(ProviderLeak).Inc()
		if !res.Found {
			if prev, ok := a.cache.leaks.Stale(key); ok && prev.Found {
				prev.Stale = true
				res = prev
			}
		}
		return leakOutcome{ran: true, res: res}
	}
	if ctx.Err() == nil {
		a.cache.leaks.Add(key, res)
	}
	return leakOutcome{ran: true, res: res}
}

func (a *Aggregator) scanCertificate(ctx context.Context, t Target, force bool) certOutcome {
	if t.PrimaryDomain == "" {
		return certOutcome{}
	}
	if !force {
		if r, ok := a.cache.certs.Get(t.PrimaryDomain); ok {
			a.metrics.CacheHits.WithLabelValues(ProviderCertificate).Inc()
			return certOutcome{ran: true, res: r}
		}
	}

	res, err := runWithTimeout(ctx, a.timeouts.Certificate, func(ctx context.Context) (CertResult, error) {
		return a.certs.Inspect(ctx, t.PrimaryDomain)
	})
	if err != nil {
		a.metrics.ProviderFailures.WithLabelValues(ProviderCertificate).Inc()
		a.log.WithError(err).WithFields(logrus.Fields{"provider": ProviderCertificate, "domain": t.PrimaryDomain}).Warn("certificate inspection failed")
		return certOutcome{ran: true, err: err}
	}
	if ctx.Err() == nil {
		a.cache.certs.Add(t.PrimaryDomain, res)
	}
	return certOutcome{ran: true, res: res}
}

func (a *Aggregator) scanPolicy(ctx context.Context, t Target, force bool) policyOutcome {
	if t.PrimaryDomain == "" && len(t.DMARCSubdomains) == 0 {
		return policyOutcome{}
	}
	key := t.PrimaryDomain + "|" + strings.Join(t.DMARCSubdomains, ",")
	if !force {
		if r, ok := a.cache.policy.Get(key); ok {
			a.metrics.CacheHits.WithLabelValues(ProviderPolicy).Inc()
			return policyOutcome{ran: true, res: r}
		}
	}

	res, err := runWithTimeout(ctx, a.timeouts.Policy, func(ctx context.Context) (PolicyResult, error) {
		return a.policy.Resolve(ctx, t.PrimaryDomain, t.DMARCSubdomains)
	})
	if err != nil {
		a.metrics.ProviderFailures.WithLabelValues(ProviderPolicy).Inc()
		a.log.WithError(err).WithFields(logrus.Fields{"provider": ProviderPolicy, "domain": t.PrimaryDomain}).Warn("DMARC lookup failed")
		if len(res.Checked) == 0 {
			res.Checked = checkedNames(t)
		}
		res.Present = models.SignalUnknown
		return policyOutcome{ran: true, res: res, err: err}
	}
	// partial failures are not worth keeping
	if ctx.Err() == nil && len(res.Failed) == 0 {
		a.cache.policy.Add(key, res)
	}
	return policyOutcome{ran: true, res: res}
}

func checkedNames(t Target) []string {
	if len(t.DMARCSubdomains) > 0 {
		return t.DMARCSubdomains
	}
	return []string{t.PrimaryDomain}
}

// runWithTimeout abandons fn once the deadline passes; fn must honour ctx to
// release its resources.
func runWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func applyLeak(b *models.EvidenceBundle, t Target, o leakOutcome) {
	b.Ransomware.Source = leakSource
	if !o.ran {
		b.Ransomware.Message = "No vendor name or domain to check"
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningRansomware, Severity: models.SeverityLow, Source: leakSource,
			Message: b.Ransomware.Message, Degraded: true,
		})
		return
	}

	r := o.res
	b.Ransomware.Found = models.SignalOf(r.Found)
	b.Ransomware.Stale = r.Stale
	if r.Found {
		b.Ransomware.Message = fmt.Sprintf("Vendor %q found in ransomware leak database", t.VendorName)
		if r.Group != "" {
			b.Ransomware.Message += fmt.Sprintf(" (group %s)", r.Group)
		}
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningRansomware, Severity: models.SeverityCritical, Source: leakSource,
			Message: b.Ransomware.Message,
		})
	} else {
		b.Ransomware.Message = "No ransomware leak activity found"
	}

	if r.Stale {
		msg := "Ransomware leak list unavailable; vendor could not be checked against current data"
		if !r.ListAge.IsZero() {
			msg = fmt.Sprintf("Ransomware leak list could not be refreshed; using data from %s", r.ListAge.UTC().Format(time.DateOnly))
		}
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningRansomware, Severity: models.SeverityLow, Source: leakSource,
			Message: msg, Degraded: true,
		})
	}
}

func applyCertificate(b *models.EvidenceBundle, t Target, o certOutcome) {
	b.Certificate.Source = certSource
	if !o.ran || o.err != nil {
		b.Certificate.Message = "No domain to inspect"
		if o.err != nil {
			b.Certificate.Message = fmt.Sprintf("Could not inspect the TLS certificate of %s", t.PrimaryDomain)
		}
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningSSL, Severity: models.SeverityLow, Source: certSource,
			Message: b.Certificate.Message, Degraded: true,
		})
		return
	}

	r := o.res
	b.Certificate.Grade = r.Grade
	b.Certificate.DaysRemaining = r.DaysRemaining
	switch {
	case r.DaysRemaining < 0:
		b.Certificate.Message = fmt.Sprintf("SSL certificate for %s expired %d days ago", t.PrimaryDomain, -r.DaysRemaining)
	default:
		b.Certificate.Message = fmt.Sprintf("SSL certificate for %s expires in %d days", t.PrimaryDomain, r.DaysRemaining)
	}

	var sev models.Severity
	switch r.Grade {
	case models.GradeF:
		sev = models.SeverityHigh
	case models.GradeC:
		sev = models.SeverityMedium
	default:
		return
	}
	b.Warnings = append(b.Warnings, models.Warning{
		Type: models.WarningSSL, Severity: sev, Source: certSource, Message: b.Certificate.Message,
	})
}

func applyPolicy(b *models.EvidenceBundle, o policyOutcome) {
	b.EmailPolicy.Source = policySource
	if !o.ran {
		b.EmailPolicy.Message = "No domain to check"
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningDMARC, Severity: models.SeverityLow, Source: policySource,
			Message: b.EmailPolicy.Message, Degraded: true,
		})
		return
	}

	r := o.res
	checked := strings.Join(r.Checked, ", ")
	b.EmailPolicy.Present = r.Present
	b.EmailPolicy.Policy = r.Policy
	b.EmailPolicy.CheckedDomains = append([]string(nil), r.Checked...)

	switch r.Present {
	case models.SignalPresent:
		b.EmailPolicy.Message = fmt.Sprintf("DMARC record found on %s (p=%s)", r.Domain, r.Policy)
		if len(r.Missing) > 0 {
			b.Warnings = append(b.Warnings, models.Warning{
				Type: models.WarningDMARC, Severity: models.SeverityLow, Source: policySource,
				Message:        "DMARC record missing on: " + strings.Join(r.Missing, ", "),
				CheckedDomains: checked,
			})
		}
		if len(r.Failed) > 0 {
			b.Warnings = append(b.Warnings, models.Warning{
				Type: models.WarningDMARC, Severity: models.SeverityLow, Source: policySource,
				Message:        "DMARC lookup failed for: " + strings.Join(r.Failed, ", "),
				CheckedDomains: checked, Degraded: true,
			})
		}
	case models.SignalAbsent:
		b.EmailPolicy.Message = "No DMARC record found for " + checked
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningDMARC, Severity: models.SeverityMedium, Source: policySource,
			Message: b.EmailPolicy.Message, CheckedDomains: checked,
		})
	default:
		b.EmailPolicy.Message = "DMARC lookup failed for " + checked
		b.Warnings = append(b.Warnings, models.Warning{
			Type: models.WarningDMARC, Severity: models.SeverityLow, Source: policySource,
			Message: b.EmailPolicy.Message, CheckedDomains: checked, Degraded: true,
		})
	}
}
