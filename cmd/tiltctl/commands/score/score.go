package score

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tilt-dashboard/internal/catalog"
	"tilt-dashboard/internal/models"
	"tilt-dashboard/internal/scoring"
)

// File is an assessment as written by hand for offline scoring.
type File struct {
	Name               string                `yaml:"name"`
	Kind               models.AssessmentKind `yaml:"assessment_type"`
	DataClassification *int                  `yaml:"data_classification"`
	Answers            map[uint]int          `yaml:"answers"`
	CloudScores        map[uint]int          `yaml:"cloud_scores"`
}

type Output struct {
	Name string `json:"name,omitempty"`
	scoring.Scores
	Cloud *scoring.CloudResult `json:"cloud,omitempty"`
}

func New(log logrus.FieldLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "score FILE",
		Short:                 "Score an assessment file against the catalog",
		Long:                  "Read a YAML assessment, score it against the question catalog and print impact, likelihood and vulnerability as JSON.",
		Example:               Example(),
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return action(cmd, args, log)
		},
	}

	flags := cmd.Flags()
	flags.String("catalog", "data", "directory holding the question catalog")
	flags.String("evidence", "", "evidence bundle JSON as printed by \"tiltctl scan\"")

	return cmd
}

func Example() string {
	return "tiltctl scan acme > acme.evidence.json && tiltctl score --evidence acme.evidence.json acme.yaml"
}

func action(cmd *cobra.Command, args []string, log logrus.FieldLogger) error {
	flags := cmd.Flags()
	dir, err := flags.GetString("catalog")
	if err != nil {
		return err
	}
	evidencePath, err := flags.GetString("evidence")
	if err != nil {
		return err
	}

	cat, err := catalog.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load catalog %q: %w", dir, err)
	}
	f, err := ReadFile(args[0])
	if err != nil {
		return err
	}
	var ev *models.EvidenceBundle
	if evidencePath != "" {
		if ev, err = readEvidence(evidencePath); err != nil {
			return err
		}
	}

	out, err := Score(f, cat, ev)
	if err != nil {
		return err
	}
	for _, sk := range out.Skipped {
		log.WithField("item_id", sk.ID).Warn(sk.String())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

func readEvidence(path string) (*models.EvidenceBundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ev models.EvidenceBundle
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ev, nil
}

// Score runs the engine that matches the file's assessment type.
func Score(f *File, cat *catalog.Catalog, ev *models.EvidenceBundle) (Output, error) {
	out := Output{Name: f.Name}
	switch f.Kind {
	case "", models.KindStandard:
		sc, err := scoring.ComputeStandardScores(f.Answers, cat.Questions, ev, f.DataClassification)
		if err != nil {
			return Output{}, err
		}
		out.Scores = sc
	case models.KindCloud:
		res, err := scoring.ComputeCloudScores(f.CloudScores, cat.Criteria, ev, f.DataClassification)
		if err != nil {
			return Output{}, err
		}
		out.Scores = res.Scores
		out.Cloud = &res
	default:
		return Output{}, fmt.Errorf("unknown assessment type %q", f.Kind)
	}
	return out, nil
}
