package scoring

import (
	"math"

	"tilt-dashboard/internal/models"
)

type CloudStatus string

const (
	StatusReject      CloudStatus = "REJECT"
	StatusRestricted  CloudStatus = "RESTRICTED"
	StatusStandard    CloudStatus = "STANDARD"
	StatusPreApproved CloudStatus = "PRE_APPROVED"
)

func (s CloudStatus) Label() string {
	switch s {
	case StatusReject:
		return "REJECT (Critical Risk)"
	case StatusRestricted:
		return "Restricted (Deficient)"
	case StatusStandard:
		return "Standard Approval"
	case StatusPreApproved:
		return "Elite (Pre-approved)"
	}
	return string(s)
}

func (s CloudStatus) Color() string {
	switch s {
	case StatusReject:
		return "red"
	case StatusRestricted:
		return "amber"
	case StatusStandard:
		return "yellow"
	case StatusPreApproved:
		return "green"
	}
	return ""
}

// ReferenceMaxPoints is the point total of the reference scorecard. The
// band thresholds below are expressed against it and scaled to whatever the
// current catalog adds up to.
const ReferenceMaxPoints = 55

var bandThresholds = [...]int{15, 30, 45}

type CloudResult struct {
	Scores
	Total          float64     `json:"score"`
	MaxTotal       int         `json:"max_score"`
	Status         CloudStatus `json:"status"`
	StatusLabel    string      `json:"status_label"`
	StatusColor    string      `json:"status_color"`
	MissedCritical bool        `json:"missed_critical"`
}

// ComputeCloudScores scores a cloud scorecard: Σ(score/5 × points) against
// the catalog's point total. A Critical criterion scored 0 or left unscored
// forces REJECT and 100% vulnerability.
func ComputeCloudScores(scores models.Answers, criteria []models.CloudCriterion, ev *models.EvidenceBundle, tier *int) (CloudResult, error) {
	if err := validateTier(tier); err != nil {
		return CloudResult{}, err
	}
	if err := validateLevels("cloud_scores", scores, 0, 5); err != nil {
		return CloudResult{}, err
	}

	known := make(map[uint]struct{}, len(criteria))
	// fifths keeps the total exact: total = fifths / 5
	var fifths, maxTotal int
	missedCritical := false
	for _, c := range criteria {
		known[c.ID] = struct{}{}
		points := max(c.Points, 0)
		score := scores[c.ID]
		fifths += score * points
		maxTotal += points
		if c.Criticality == models.ImportanceCritical && score == 0 {
			missedCritical = true
		}
	}

	vuln := 100
	if maxTotal > 0 {
		vuln = clampPercent(int(math.Round((1 - float64(fifths)/float64(5*maxTotal)) * 100)))
	}
	vuln = ApplyEvidenceFloors(vuln, ev)
	if missedCritical {
		vuln = 100
	}

	b := band(fifths, maxTotal)
	status := [...]CloudStatus{StatusReject, StatusRestricted, StatusStandard, StatusPreApproved}[b]
	if missedCritical {
		status = StatusReject
	}
	bandLikelihood := float64(5 - b)

	impact := bandLikelihood
	if tier != nil {
		impact = clampScale(float64(*tier))
	}

	return CloudResult{
		Scores: Scores{
			Impact:        impact,
			Likelihood:    applyRansomware(bandLikelihood, ev),
			Vulnerability: vuln,
			Skipped:       skippedAnswers(scores, known),
		},
		Total:          float64(fifths) / 5,
		MaxTotal:       maxTotal,
		Status:         status,
		StatusLabel:    status.Label(),
		StatusColor:    status.Color(),
		MissedCritical: missedCritical,
	}, nil
}

// band returns 0 (critical) .. 3 (elite). total/max is compared against
// threshold/ReferenceMaxPoints in integers to avoid float edge cases.
func band(fifths, maxTotal int) int {
	if maxTotal <= 0 {
		return 0
	}
	b := 0
	for _, t := range bandThresholds {
		if fifths*ReferenceMaxPoints >= t*5*maxTotal {
			b++
		}
	}
	return b
}
