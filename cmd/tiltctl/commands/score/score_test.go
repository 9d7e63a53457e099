package score

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilt-dashboard/internal/catalog"
	"tilt-dashboard/internal/models"
	"tilt-dashboard/internal/scoring"
)

const questionsYAML = `
- id: 1
  question: MFA enforced?
  weight: Critical
  maturity_levels: {1: none, 5: everywhere}
- id: 2
  question: Backups tested?
  weight: Low
  maturity_levels: {1: none, 5: quarterly}
`

const criteriaYAML = `
- id: 1
  criterion: SOC 2
  criticality: Critical
  points: 10
- id: 2
  criterion: SSO
  criticality: Medium
  points: 10
`

func writeCatalog(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.StandardFile), []byte(questionsYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.CloudFile), []byte(criteriaYAML), 0o644))
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestScore(t *testing.T) {
	cat, err := catalog.Load(writeCatalog(t))
	require.NoError(t, err)
	tier := 4

	t.Run("standard", func(t *testing.T) {
		out, err := Score(&File{Answers: map[uint]int{1: 5, 2: 5}, DataClassification: &tier}, cat, nil)
		require.NoError(t, err)
		assert.Equal(t, 20, out.Vulnerability)
		assert.Equal(t, 4.0, out.Impact)
		assert.Nil(t, out.Cloud)
	})

	t.Run("cloud knockout", func(t *testing.T) {
		out, err := Score(&File{Kind: models.KindCloud, CloudScores: map[uint]int{1: 0, 2: 5}, DataClassification: &tier}, cat, nil)
		require.NoError(t, err)
		require.NotNil(t, out.Cloud)
		assert.Equal(t, scoring.StatusReject, out.Cloud.Status)
		assert.Equal(t, 100, out.Vulnerability)
	})

	t.Run("evidence floor", func(t *testing.T) {
		ev := &models.EvidenceBundle{EmailPolicy: models.EmailPolicyEvidence{Present: models.SignalAbsent}}
		out, err := Score(&File{Answers: map[uint]int{1: 5, 2: 5}, DataClassification: &tier}, cat, ev)
		require.NoError(t, err)
		assert.Equal(t, 60, out.Vulnerability)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := Score(&File{Answers: map[uint]int{1: 7}}, cat, nil)
		assert.ErrorIs(t, err, scoring.ErrInvalidInput)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := Score(&File{Kind: "hybrid"}, cat, nil)
		assert.Error(t, err)
	})
}

func TestCommand(t *testing.T) {
	dir := writeCatalog(t)
	assessmentPath := writeFile(t, dir, "acme.yaml", `
name: Acme
assessment_type: standard
data_classification: 3
answers:
  1: 5
  2: 5
`)
	evidencePath := writeFile(t, dir, "acme.evidence.json", `{"certificate":{"grade":"F","days_remaining":-3}}`)

	log := logrus.New()
	log.SetOutput(io.Discard)

	var stdout bytes.Buffer
	cmd := New(log)
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--catalog", dir, "--evidence", evidencePath, assessmentPath})
	require.NoError(t, cmd.Execute())

	var out Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "Acme", out.Name)
	assert.Equal(t, 3.0, out.Impact)
	assert.Equal(t, 80, out.Vulnerability)
}
