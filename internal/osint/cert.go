package osint

import (
	"context"
	"math"
	"time"

	"tilt-dashboard/internal/models"
)

const certSource = "Certificate validation"

type CertResult struct {
	Grade         models.CertGrade `json:"grade"`
	DaysRemaining int              `json:"days_remaining"`
	NotAfter      time.Time        `json:"not_after"`
}

type CertificateInspector struct {
	peeker CertificatePeeker
	clock  Clock
}

func NewCertificateInspector(peeker CertificatePeeker, clock Clock) *CertificateInspector {
	if clock == nil {
		clock = SystemClock
	}
	return &CertificateInspector{peeker: peeker, clock: clock}
}

func (c *CertificateInspector) Inspect(ctx context.Context, domain string) (CertResult, error) {
	notAfter, err := c.peeker.PeekCertificate(ctx, domain)
	if err != nil {
		return CertResult{}, &ProviderError{Provider: ProviderCertificate, Target: domain, Err: err}
	}
	grade, days := GradeCertificate(notAfter, c.clock.Now())
	return CertResult{Grade: grade, DaysRemaining: days, NotAfter: notAfter}, nil
}

// GradeCertificate grades by whole days left: expired or under a week is F,
// under 30 days C, under 60 days B, otherwise A.
func GradeCertificate(notAfter, now time.Time) (models.CertGrade, int) {
	days := int(math.Floor(notAfter.Sub(now).Hours() / 24))
	switch {
	case days < 7:
		return models.GradeF, days
	case days < 30:
		return models.GradeC, days
	case days < 60:
		return models.GradeB, days
	default:
		return models.GradeA, days
	}
}
