package scoring

import (
	"sort"

	"tilt-dashboard/internal/models"
)

// RankAssessments orders assessments for the dashboard: vendors found on a
// ransomware leak site first, then Prohibited ones, then by vulnerability
// descending. The sort is stable and the input slice is left untouched.
func RankAssessments(list []models.VendorAssessment) []models.VendorAssessment {
	out := append([]models.VendorAssessment(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return rankLess(&out[i], &out[j])
	})
	return out
}

func rankLess(a, b *models.VendorAssessment) bool {
	if ar, br := a.Evidence.RansomwareFound(), b.Evidence.RansomwareFound(); ar != br {
		return ar
	}
	if ap, bp := a.Status == models.VendorProhibited, b.Status == models.VendorProhibited; ap != bp {
		return ap
	}
	return a.Vulnerability > b.Vulnerability
}
