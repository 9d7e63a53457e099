package scoring

import "tilt-dashboard/internal/models"

const (
	// CertificateFloor applies when the certificate is expired or about to be.
	CertificateFloor = 80
	// EmailPolicyFloor applies when no DMARC record was found.
	EmailPolicyFloor = 60

	ransomwareLikelihood = 5.0
)

// ApplyEvidenceFloors raises vulnerability to the evidence floors. It never
// lowers the value and applying it twice changes nothing.
func ApplyEvidenceFloors(vulnerability int, ev *models.EvidenceBundle) int {
	if ev.CertificateFailed() {
		vulnerability = max(vulnerability, CertificateFloor)
	}
	if ev.EmailPolicyMissing() {
		vulnerability = max(vulnerability, EmailPolicyFloor)
	}
	return vulnerability
}

// applyRansomware is the only evidence rule that touches likelihood.
func applyRansomware(likelihood float64, ev *models.EvidenceBundle) float64 {
	if ev.RansomwareFound() {
		return ransomwareLikelihood
	}
	return likelihood
}

func validateTier(tier *int) error {
	if tier == nil {
		return nil
	}
	if *tier < 1 || *tier > 5 {
		return &InputError{Field: "data_classification", Value: *tier, Reason: "tier must be between 1 and 5"}
	}
	return nil
}

func clampScale(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
