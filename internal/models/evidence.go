package models

import (
	"fmt"
	"strings"
	"time"
)

// Signal is a three-state OSINT observation. Unknown never counts as Absent.
type Signal int

const (
	SignalUnknown Signal = iota
	SignalPresent
	SignalAbsent
)

func SignalOf(b bool) Signal {
	if b {
		return SignalPresent
	}
	return SignalAbsent
}

func (s Signal) Known() bool { return s == SignalPresent || s == SignalAbsent }

func (s Signal) String() string {
	switch s {
	case SignalPresent:
		return "present"
	case SignalAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signal) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "present", "true":
		*s = SignalPresent
	case "absent", "false":
		*s = SignalAbsent
	case "unknown", "", "null":
		*s = SignalUnknown
	default:
		return fmt.Errorf("invalid signal %q", string(text))
	}
	return nil
}

// CertGrade is ordinal: A > B > C > F. The zero value is unknown.
type CertGrade string

const (
	GradeUnknown CertGrade = ""
	GradeA       CertGrade = "A"
	GradeB       CertGrade = "B"
	GradeC       CertGrade = "C"
	GradeF       CertGrade = "F"
)

func (g CertGrade) Known() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeF:
		return true
	}
	return false
}

type WarningType string

const (
	WarningRansomware WarningType = "ransomware"
	WarningSSL        WarningType = "ssl"
	WarningDMARC      WarningType = "dmarc"
)

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

type Warning struct {
	Type           WarningType `json:"type"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	Source         string      `json:"source"`
	CheckedDomains string      `json:"checked_domains,omitempty"`
	// Degraded marks a notice about a provider that could not answer
	// (unreachable, stale data), as opposed to a finding about the vendor.
	Degraded bool `json:"degraded,omitempty"`
}

type RansomwareEvidence struct {
	Found   Signal `json:"found"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
	// Stale is set when the leak list could not be refreshed and Found comes
	// from an outdated list or a fallback.
	Stale bool `json:"stale,omitempty"`
}

type CertificateEvidence struct {
	Grade         CertGrade `json:"grade"`
	DaysRemaining int       `json:"days_remaining"`
	Source        string    `json:"source,omitempty"`
	Message       string    `json:"message,omitempty"`
}

type EmailPolicyEvidence struct {
	Present        Signal   `json:"present"`
	Policy         string   `json:"policy,omitempty"` // reject / quarantine / none
	CheckedDomains []string `json:"checked_domains,omitempty"`
	Source         string   `json:"source,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// EvidenceBundle is the merged OSINT picture of one vendor. A VendorAssessment
// owns its own copy; it is never linked to live provider state.
type EvidenceBundle struct {
	ScanID      string              `json:"scan_id,omitempty"`
	ScannedAt   time.Time           `json:"scanned_at"`
	Ransomware  RansomwareEvidence  `json:"ransomware"`
	Certificate CertificateEvidence `json:"certificate"`
	EmailPolicy EmailPolicyEvidence `json:"email_policy"`
	Warnings    []Warning           `json:"warnings"`
	// Acknowledged is set by a reviewer and only affects presentation.
	Acknowledged bool `json:"acknowledged"`
	// Stale is set when some signal was carried over from an earlier scan
	// because the latest one could not determine it.
	Stale bool `json:"stale"`
}

func (b *EvidenceBundle) RansomwareFound() bool {
	return b != nil && b.Ransomware.Found == SignalPresent
}

func (b *EvidenceBundle) CertificateFailed() bool {
	return b != nil && b.Certificate.Grade == GradeF
}

func (b *EvidenceBundle) EmailPolicyMissing() bool {
	return b != nil && b.EmailPolicy.Present == SignalAbsent
}

func (b *EvidenceBundle) Clone() *EvidenceBundle {
	if b == nil {
		return nil
	}
	out := *b
	out.Warnings = append([]Warning(nil), b.Warnings...)
	out.EmailPolicy.CheckedDomains = append([]string(nil), b.EmailPolicy.CheckedDomains...)
	return &out
}

// MergeEvidence folds a fresh scan into the previously stored bundle.
// Warnings of a scanned type replace prior ones of that type. When the fresh
// scan could not determine a signal the prior value and its warnings are kept
// and the bundle is flagged stale, so a failed scan never reads as clean.
func MergeEvidence(prior, fresh *EvidenceBundle) *EvidenceBundle {
	if fresh == nil {
		return prior.Clone()
	}
	out := fresh.Clone()
	if prior == nil {
		return out
	}

	keepPrior := map[WarningType]bool{}

	staleMiss := fresh.Ransomware.Stale && fresh.Ransomware.Found != SignalPresent &&
		prior.Ransomware.Found == SignalPresent
	if (!fresh.Ransomware.Found.Known() && prior.Ransomware.Found.Known()) || staleMiss {
		out.Ransomware = prior.Ransomware
		keepPrior[WarningRansomware] = true
	}
	if !fresh.Certificate.Grade.Known() && prior.Certificate.Grade.Known() {
		out.Certificate = prior.Certificate
		keepPrior[WarningSSL] = true
	}
	if !fresh.EmailPolicy.Present.Known() && prior.EmailPolicy.Present.Known() {
		out.EmailPolicy = prior.EmailPolicy
		out.EmailPolicy.CheckedDomains = append([]string(nil), prior.EmailPolicy.CheckedDomains...)
		keepPrior[WarningDMARC] = true
	}
	if len(keepPrior) > 0 {
		out.Stale = true
	}

	var warnings []Warning
	for _, w := range prior.Warnings {
		if keepPrior[w.Type] && !w.Degraded {
			warnings = append(warnings, w)
		}
	}
	warnings = append(warnings, out.Warnings...)
	out.Warnings = warnings

	out.Acknowledged = prior.Acknowledged && !hasNewFinding(prior.Warnings, out.Warnings)
	return out
}

func hasNewFinding(prior, current []Warning) bool {
	seen := make(map[string]struct{}, len(prior))
	for _, w := range prior {
		seen[string(w.Type)+"|"+string(w.Severity)] = struct{}{}
	}
	for _, w := range current {
		if w.Degraded {
			continue
		}
		if _, ok := seen[string(w.Type)+"|"+string(w.Severity)]; !ok {
			return true
		}
	}
	return false
}
