// Package catalog loads the default assessment questions and cloud criteria
// from YAML seed files.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tilt-dashboard/internal/models"
)

const (
	StandardFile = "questions_standard.yaml"
	CloudFile    = "questions_cloud.yaml"
)

type questionEntry struct {
	ID             uint           `yaml:"id"`
	NISTControl    string         `yaml:"nist_control"`
	Category       string         `yaml:"category"`
	PolicyRef      string         `yaml:"policy_ref"`
	Question       string         `yaml:"question"`
	Weight         string         `yaml:"weight"`
	MaturityLevels map[int]string `yaml:"maturity_levels"`
	Notes          string         `yaml:"notes"`
}

type criterionEntry struct {
	ID             uint           `yaml:"id"`
	Category       string         `yaml:"category"`
	Criterion      string         `yaml:"criterion"`
	Description    string         `yaml:"description"`
	Criticality    string         `yaml:"criticality"`
	Points         int            `yaml:"points"`
	OSINTSource    string         `yaml:"osint_source"`
	MaturityLevels map[int]string `yaml:"maturity_levels"`
	Notes          string         `yaml:"notes"`
}

type Catalog struct {
	Questions []models.Question
	Criteria  []models.CloudCriterion
}

// Load reads both seed files from dir. A missing file yields an empty list.
func Load(dir string) (*Catalog, error) {
	questions, err := LoadQuestions(filepath.Join(dir, StandardFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	criteria, err := LoadCriteria(filepath.Join(dir, CloudFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return &Catalog{Questions: questions, Criteria: criteria}, nil
}

func LoadQuestions(path string) ([]models.Question, error) {
	var entries []questionEntry
	if err := readYAML(path, &entries); err != nil {
		return nil, err
	}

	seen := map[uint]bool{}
	out := make([]models.Question, 0, len(entries))
	for i, e := range entries {
		if e.ID == 0 || seen[e.ID] {
			return nil, fmt.Errorf("%s: entry %d: missing or duplicate id %d", path, i, e.ID)
		}
		seen[e.ID] = true
		if e.Question == "" {
			return nil, fmt.Errorf("%s: question %d: empty text", path, e.ID)
		}
		w := models.Importance(e.Weight)
		if !w.Valid() {
			return nil, fmt.Errorf("%s: question %d: invalid weight %q", path, e.ID, e.Weight)
		}
		if err := checkLevels(e.MaturityLevels, 1, 5); err != nil {
			return nil, fmt.Errorf("%s: question %d: %w", path, e.ID, err)
		}
		out = append(out, models.Question{
			ID:             e.ID,
			NISTControl:    e.NISTControl,
			Category:       e.Category,
			PolicyRef:      e.PolicyRef,
			Prompt:         e.Question,
			Weight:         w,
			MaturityLevels: e.MaturityLevels,
			Notes:          e.Notes,
		})
	}
	return out, nil
}

func LoadCriteria(path string) ([]models.CloudCriterion, error) {
	var entries []criterionEntry
	if err := readYAML(path, &entries); err != nil {
		return nil, err
	}

	seen := map[uint]bool{}
	out := make([]models.CloudCriterion, 0, len(entries))
	for i, e := range entries {
		if e.ID == 0 || seen[e.ID] {
			return nil, fmt.Errorf("%s: entry %d: missing or duplicate id %d", path, i, e.ID)
		}
		seen[e.ID] = true
		if e.Criterion == "" {
			return nil, fmt.Errorf("%s: criterion %d: empty text", path, e.ID)
		}
		c := models.Importance(e.Criticality)
		if !c.Valid() {
			return nil, fmt.Errorf("%s: criterion %d: invalid criticality %q", path, e.ID, e.Criticality)
		}
		if e.Points < 0 {
			return nil, fmt.Errorf("%s: criterion %d: negative points", path, e.ID)
		}
		if err := checkLevels(e.MaturityLevels, 0, 5); err != nil {
			return nil, fmt.Errorf("%s: criterion %d: %w", path, e.ID, err)
		}
		out = append(out, models.CloudCriterion{
			ID:             e.ID,
			Category:       e.Category,
			Criterion:      e.Criterion,
			Description:    e.Description,
			Criticality:    c,
			Points:         e.Points,
			OSINTSource:    e.OSINTSource,
			MaturityLevels: e.MaturityLevels,
			Notes:          e.Notes,
		})
	}
	return out, nil
}

// TotalPoints is the maximum cloud score the criteria allow.
func TotalPoints(criteria []models.CloudCriterion) int {
	total := 0
	for _, c := range criteria {
		total += c.Points
	}
	return total
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func checkLevels(levels map[int]string, lo, hi int) error {
	for lvl := range levels {
		if lvl < lo || lvl > hi {
			return fmt.Errorf("maturity level %d outside %d..%d", lvl, lo, hi)
		}
	}
	return nil
}
