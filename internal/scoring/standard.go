// Package scoring turns questionnaire answers and OSINT evidence into the
// impact / likelihood / vulnerability triple plotted on the risk matrix.
//
// Every function here is pure: it reads its arguments and returns a value,
// so callers may score concurrently without locking.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"tilt-dashboard/internal/models"
)

// Scores is the derived part of a VendorAssessment.
type Scores struct {
	Impact        float64         `json:"impact"`
	Likelihood    float64         `json:"likelihood"`
	Vulnerability int             `json:"vulnerability"`
	Skipped       []SkippedAnswer `json:"skipped,omitempty"`
}

func questionWeight(w models.Importance) float64 {
	switch w {
	case models.ImportanceCritical:
		return 3
	case models.ImportanceHigh:
		return 2
	default:
		return 1
	}
}

// CalculateVulnerability returns 0..100, 100 being fully vulnerable.
// Level 1 normalizes to 1.0 and level 5 to 0.2: a top answer is never
// treated as risk-free. No answers, or none matching the catalog, is 100.
func CalculateVulnerability(answers models.Answers, questions []models.Question, ev *models.EvidenceBundle) int {
	if len(answers) == 0 {
		return 100
	}

	var weighted, total float64
	for _, q := range questions {
		level, ok := answers[q.ID]
		if !ok {
			continue
		}
		norm := float64(6-clampLevel(level, 1)) / 5
		w := questionWeight(q.Weight)
		weighted += norm * w
		total += w
	}
	if total == 0 {
		return 100
	}

	vuln := clampPercent(int(math.Round(weighted / total * 100)))
	return ApplyEvidenceFloors(vuln, ev)
}

// ComputeStandardScores scores a standard questionnaire. Impact comes from
// the classification tier; legacy records without one fall back to the
// maturity heuristic.
func ComputeStandardScores(answers models.Answers, questions []models.Question, ev *models.EvidenceBundle, tier *int) (Scores, error) {
	if err := validateTier(tier); err != nil {
		return Scores{}, err
	}
	if err := validateLevels("answers", answers, 1, 5); err != nil {
		return Scores{}, err
	}

	known := make(map[uint]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	avg := averageMaturity(answers, known)
	heuristic := clampScale((6 - avg) / 1.2)

	impact := heuristic
	if tier != nil {
		impact = clampScale(float64(*tier))
	}

	return Scores{
		Impact:        impact,
		Likelihood:    applyRansomware(heuristic, ev),
		Vulnerability: CalculateVulnerability(answers, questions, ev),
		Skipped:       skippedAnswers(answers, known),
	}, nil
}

// averageMaturity defaults to 1, the worst case, when nothing matched.
func averageMaturity(answers models.Answers, known map[uint]struct{}) float64 {
	var sum, n int
	for id, level := range answers {
		if _, ok := known[id]; !ok {
			continue
		}
		sum += level
		n++
	}
	if n == 0 {
		return 1
	}
	return float64(sum) / float64(n)
}

func validateLevels(field string, answers models.Answers, lo, hi int) error {
	ids := make([]uint, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		level := answers[id]
		if level < lo || level > hi {
			return &InputError{
				Field:  fmt.Sprintf("%s[%d]", field, id),
				Value:  level,
				Reason: fmt.Sprintf("maturity level must be between %d and %d", lo, hi),
			}
		}
	}
	return nil
}

func skippedAnswers(answers models.Answers, known map[uint]struct{}) []SkippedAnswer {
	var out []SkippedAnswer
	for id, level := range answers {
		if _, ok := known[id]; !ok {
			out = append(out, SkippedAnswer{ID: id, Level: level})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clampLevel(level, lo int) int {
	if level < lo {
		return lo
	}
	if level > 5 {
		return 5
	}
	return level
}
