package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilt-dashboard/internal/models"
)

func TestLoad_DefaultSeedFiles(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "data"))
	require.NoError(t, err)

	assert.NotEmpty(t, cat.Questions)
	assert.Equal(t, 55, TotalPoints(cat.Criteria))

	var critical int
	for _, c := range cat.Criteria {
		if c.Criticality == models.ImportanceCritical {
			critical++
		}
		assert.Len(t, c.MaturityLevels, 6, "criterion %d", c.ID)
	}
	assert.Positive(t, critical)

	for _, q := range cat.Questions {
		assert.True(t, q.Weight.Valid(), "question %d", q.ID)
		assert.Len(t, q.MaturityLevels, 5, "question %d", q.ID)
	}
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	cat, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cat.Questions)
	assert.Empty(t, cat.Criteria)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadQuestions_Invalid(t *testing.T) {
	tests := []struct {
		name, body, msg string
	}{
		{name: "bad weight", body: "- {id: 1, question: x, weight: Huge}", msg: "invalid weight"},
		{name: "duplicate id", body: "- {id: 1, question: x, weight: Low}\n- {id: 1, question: y, weight: Low}", msg: "duplicate id"},
		{name: "missing id", body: "- {question: x, weight: Low}", msg: "missing or duplicate id"},
		{name: "empty text", body: "- {id: 2, weight: Low}", msg: "empty text"},
		{name: "level out of range", body: "- {id: 3, question: x, weight: Low, maturity_levels: {0: none}}", msg: "outside 1..5"},
		{name: "not yaml", body: "- [", msg: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQuestions(writeFile(t, StandardFile, tt.body))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoadCriteria(t *testing.T) {
	path := writeFile(t, CloudFile, `
- id: 4
  criterion: Encryption
  criticality: Critical
  points: 10
  maturity_levels: {0: none, 5: full}
`)
	got, err := LoadCriteria(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(4), got[0].ID)
	assert.Equal(t, models.ImportanceCritical, got[0].Criticality)
	assert.Equal(t, "full", got[0].MaturityLevels[5])

	_, err = LoadCriteria(writeFile(t, CloudFile, "- {id: 1, criterion: x, criticality: Low, points: -2}"))
	assert.ErrorContains(t, err, "negative points")
}
