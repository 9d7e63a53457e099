// Package assessment owns the vendor assessment lifecycle: every write goes
// through the scoring engine so stored scores always match stored inputs.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"tilt-dashboard/internal/models"
	"tilt-dashboard/internal/osint"
	"tilt-dashboard/internal/scoring"
)

var ErrNotFound = errors.New("assessment not found")

// ValidationError rejects a record before anything is computed or stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

func (e *ValidationError) Unwrap() error { return scoring.ErrInvalidInput }

type Repository interface {
	GetVendor(ctx context.Context, id uint) (*models.VendorAssessment, error)
	ListVendors(ctx context.Context) ([]models.VendorAssessment, error)
	SaveVendor(ctx context.Context, va *models.VendorAssessment) error
	DeleteVendor(ctx context.Context, id uint) error
	ListQuestions(ctx context.Context) ([]models.Question, error)
	ListCriteria(ctx context.Context) ([]models.CloudCriterion, error)
}

type Scanner interface {
	Scan(ctx context.Context, target osint.Target, opts osint.ScanOptions) (*models.EvidenceBundle, error)
}

type Service struct {
	repo    Repository
	scanner Scanner
	log     logrus.FieldLogger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewService(repo Repository, scanner Scanner, log logrus.FieldLogger) *Service {
	return &Service{
		repo:    repo,
		scanner: scanner,
		log:     log.WithField("component", "assessment"),
		locks:   map[uint]*sync.Mutex{},
	}
}

// lock serialises read-modify-write cycles on one record.
func (s *Service) lock(id uint) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) Get(ctx context.Context, id uint) (*models.VendorAssessment, error) {
	return s.repo.GetVendor(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.VendorAssessment, error) {
	return s.repo.ListVendors(ctx)
}

// Ranked lists vendors by urgency: ransomware first, then prohibited, then
// by vulnerability.
func (s *Service) Ranked(ctx context.Context) ([]models.VendorAssessment, error) {
	list, err := s.repo.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.RankAssessments(list), nil
}

// Save validates the inputs of va, recomputes every derived field and stores
// the record in a single write. Evidence cannot be set through Save; an
// update keeps the evidence already stored.
func (s *Service) Save(ctx context.Context, va *models.VendorAssessment) (*models.VendorAssessment, error) {
	if err := normalize(va); err != nil {
		return nil, err
	}
	if va.DataClassification == nil {
		return nil, &ValidationError{Field: "data_classification", Reason: "is required"}
	}

	va.Evidence = nil
	if va.ID != 0 {
		defer s.lock(va.ID)()
		stored, err := s.repo.GetVendor(ctx, va.ID)
		if err != nil {
			return nil, err
		}
		va.CreatedAt = stored.CreatedAt
		va.Evidence = stored.Evidence
	}

	if err := s.score(ctx, va); err != nil {
		return nil, err
	}
	if err := s.repo.SaveVendor(ctx, va); err != nil {
		return nil, fmt.Errorf("save vendor: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"vendor_id":     va.ID,
		"vulnerability": va.Vulnerability,
	}).Info("assessment saved")
	return va, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	defer s.lock(id)()
	if err := s.repo.DeleteVendor(ctx, id); err != nil {
		return err
	}
	s.log.WithField("vendor_id", id).Info("assessment deleted")
	return nil
}

type CalculateRequest struct {
	Kind               models.AssessmentKind  `json:"assessment_type"`
	Answers            models.Answers         `json:"answers"`
	CloudScores        models.Answers         `json:"cloud_scores"`
	DataClassification *int                   `json:"data_classification"`
	Evidence           *models.EvidenceBundle `json:"evidence"`
}

type Result struct {
	scoring.Scores
	Cloud *scoring.CloudResult `json:"cloud,omitempty"`
}

// Calculate previews the scores of an unsaved assessment.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (Result, error) {
	if req.Kind == "" {
		req.Kind = models.KindStandard
	}
	switch req.Kind {
	case models.KindStandard:
		questions, err := s.repo.ListQuestions(ctx)
		if err != nil {
			return Result{}, err
		}
		sc, err := scoring.ComputeStandardScores(req.Answers, questions, req.Evidence, req.DataClassification)
		if err != nil {
			return Result{}, err
		}
		return Result{Scores: sc}, nil
	case models.KindCloud:
		criteria, err := s.repo.ListCriteria(ctx)
		if err != nil {
			return Result{}, err
		}
		res, err := scoring.ComputeCloudScores(req.CloudScores, criteria, req.Evidence, req.DataClassification)
		if err != nil {
			return Result{}, err
		}
		return Result{Scores: res.Scores, Cloud: &res}, nil
	}
	return Result{}, &ValidationError{Field: "assessment_type", Reason: fmt.Sprintf("unknown type %q", req.Kind)}
}

// Scan runs the OSINT providers for a stored vendor, merges the evidence
// into the record and re-scores it.
func (s *Service) Scan(ctx context.Context, id uint, force bool) (*models.VendorAssessment, error) {
	defer s.lock(id)()

	va, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}

	target := osint.Target{
		VendorName:      va.Name,
		PrimaryDomain:   PrimaryDomain(va),
		DMARCSubdomains: va.Target.DMARCSubdomains,
	}
	bundle, err := s.scanner.Scan(ctx, target, osint.ScanOptions{Force: force})
	if err != nil {
		return nil, err
	}

	va.Evidence = models.MergeEvidence(va.Evidence, bundle)
	if err := s.score(ctx, va); err != nil {
		return nil, err
	}
	if err := s.repo.SaveVendor(ctx, va); err != nil {
		return nil, fmt.Errorf("save vendor: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"vendor_id": id,
		"scan_id":   va.Evidence.ScanID,
		"stale":     va.Evidence.Stale,
		"warnings":  len(va.Evidence.Warnings),
	}).Info("evidence updated")
	return va, nil
}

// Acknowledge marks the current warnings as reviewed. It changes no score.
func (s *Service) Acknowledge(ctx context.Context, id uint, ack bool) (*models.VendorAssessment, error) {
	defer s.lock(id)()

	va, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	if va.Evidence == nil {
		return nil, &ValidationError{Field: "evidence", Reason: "vendor has not been scanned"}
	}
	va.Evidence = va.Evidence.Clone()
	va.Evidence.Acknowledged = ack
	if err := s.repo.SaveVendor(ctx, va); err != nil {
		return nil, fmt.Errorf("save vendor: %w", err)
	}
	return va, nil
}

// RescoreAll recomputes every stored vendor against the current catalog.
// It runs after questions or criteria change.
func (s *Service) RescoreAll(ctx context.Context) (int, error) {
	list, err := s.repo.ListVendors(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range list {
		va := &list[i]
		if err := s.rescoreOne(ctx, va.ID); err != nil {
			s.log.WithError(err).WithField("vendor_id", va.ID).Warn("rescore failed")
			continue
		}
		n++
	}
	return n, nil
}

func (s *Service) rescoreOne(ctx context.Context, id uint) error {
	defer s.lock(id)()
	va, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.score(ctx, va); err != nil {
		return err
	}
	return s.repo.SaveVendor(ctx, va)
}

// score sets Impact, Likelihood, Vulnerability and CloudStatus from the
// record's inputs and evidence.
func (s *Service) score(ctx context.Context, va *models.VendorAssessment) error {
	var sc scoring.Scores
	switch va.Kind {
	case models.KindCloud:
		criteria, err := s.repo.ListCriteria(ctx)
		if err != nil {
			return err
		}
		res, err := scoring.ComputeCloudScores(va.CloudScores, criteria, va.Evidence, va.DataClassification)
		if err != nil {
			return err
		}
		sc = res.Scores
		va.CloudStatus = string(res.Status)
	default:
		questions, err := s.repo.ListQuestions(ctx)
		if err != nil {
			return err
		}
		sc, err = scoring.ComputeStandardScores(va.Answers, questions, va.Evidence, va.DataClassification)
		if err != nil {
			return err
		}
		va.CloudStatus = ""
	}

	for _, sk := range sc.Skipped {
		s.log.WithFields(logrus.Fields{"vendor_id": va.ID, "item_id": sk.ID}).Warn(sk.String())
	}
	va.Impact = sc.Impact
	va.Likelihood = sc.Likelihood
	va.Vulnerability = sc.Vulnerability
	return nil
}

func normalize(va *models.VendorAssessment) error {
	va.Name = strings.TrimSpace(va.Name)
	if va.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if va.Status == "" {
		va.Status = models.VendorNew
	}
	if !va.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", va.Status)}
	}
	if va.Kind == "" {
		va.Kind = models.KindStandard
	}
	if va.Kind != models.KindStandard && va.Kind != models.KindCloud {
		return &ValidationError{Field: "assessment_type", Reason: fmt.Sprintf("unknown type %q", va.Kind)}
	}
	if va.Answers == nil {
		va.Answers = models.Answers{}
	}
	if va.CloudScores == nil {
		va.CloudScores = models.Answers{}
	}
	va.Target.PrimaryDomain = osint.NormalizeDomain(va.Target.PrimaryDomain)
	va.Target.DMARCSubdomains = osint.NormalizeDomains(va.Target.DMARCSubdomains)
	return nil
}

// PrimaryDomain is the configured domain, or a guess from the vendor name
// ("Acme Corp" -> "acmecorp.com") when none is set.
func PrimaryDomain(va *models.VendorAssessment) string {
	if d := osint.NormalizeDomain(va.Target.PrimaryDomain); d != "" {
		return d
	}
	name := strings.ToLower(strings.Join(strings.Fields(va.Name), ""))
	if name == "" {
		return ""
	}
	return name + ".com"
}
