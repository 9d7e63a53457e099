package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tilt-dashboard/internal/assessment"
	"tilt-dashboard/internal/config"
	"tilt-dashboard/internal/handlers"
	"tilt-dashboard/internal/models"
	"tilt-dashboard/internal/osint"
)

// memStore backs both the assessment service and the handlers.
type memStore struct {
	mu        sync.Mutex
	user      models.User
	vendors   map[uint]models.VendorAssessment
	nextID    uint
	questions []models.Question
	criteria  []models.CloudCriterion
	settings  map[string]string
}

func newMemStore(t *testing.T) *memStore {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	s := &memStore{
		vendors: map[uint]models.VendorAssessment{},
		questions: []models.Question{
			{ID: 1, Prompt: "MFA", Weight: models.ImportanceCritical},
			{ID: 2, Prompt: "Backups", Weight: models.ImportanceCritical},
		},
		criteria: []models.CloudCriterion{{ID: 1, Criterion: "SSO", Criticality: models.ImportanceCritical, Points: 10}},
		settings: map[string]string{},
	}
	s.user.ID = 1
	s.user.Username = "admin"
	s.user.PasswordHash = string(hash)
	return s
}

func (s *memStore) FindUser(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if username != s.user.Username {
		return nil, assessment.ErrNotFound
	}
	u := s.user
	return &u, nil
}

func (s *memStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.user.ID {
		return nil, assessment.ErrNotFound
	}
	u := s.user
	return &u, nil
}

func (s *memStore) SetPassword(ctx context.Context, id uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.PasswordHash = string(hash)
	return nil
}

func (s *memStore) GetVendor(ctx context.Context, id uint) (*models.VendorAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	va, ok := s.vendors[id]
	if !ok {
		return nil, assessment.ErrNotFound
	}
	va.Evidence = va.Evidence.Clone()
	return &va, nil
}

func (s *memStore) ListVendors(ctx context.Context) ([]models.VendorAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.VendorAssessment, 0, len(s.vendors))
	for _, va := range s.vendors {
		out = append(out, va)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SaveVendor(ctx context.Context, va *models.VendorAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if va.ID == 0 {
		s.nextID++
		va.ID = s.nextID
	}
	s.vendors[va.ID] = *va
	return nil
}

func (s *memStore) DeleteVendor(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[id]; !ok {
		return assessment.ErrNotFound
	}
	delete(s.vendors, id)
	return nil
}

func (s *memStore) ListQuestions(ctx context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Question(nil), s.questions...), nil
}

func (s *memStore) SaveQuestion(ctx context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == 0 {
		q.ID = uint(len(s.questions) + 100)
	}
	s.questions = append(s.questions, *q)
	return nil
}

func (s *memStore) DeleteQuestion(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.questions {
		if q.ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			return nil
		}
	}
	return assessment.ErrNotFound
}

func (s *memStore) ListCriteria(ctx context.Context) ([]models.CloudCriterion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CloudCriterion(nil), s.criteria...), nil
}

func (s *memStore) SaveCriterion(ctx context.Context, cr *models.CloudCriterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = append(s.criteria, *cr)
	return nil
}

func (s *memStore) DeleteCriterion(ctx context.Context, id uint) error { return assessment.ErrNotFound }

func (s *memStore) Settings(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{models.SettingOrgName: models.DefaultOrgName}
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) SaveSettings(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.settings[k] = v
	}
	return nil
}

type stubScanner struct {
	err    error
	bundle *models.EvidenceBundle
}

func (s *stubScanner) Scan(ctx context.Context, target osint.Target, opts osint.ScanOptions) (*models.EvidenceBundle, error) {
	if s.err != nil && opts.Force {
		return nil, s.err
	}
	return s.bundle.Clone(), nil
}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	store   *memStore
	scanner *stubScanner
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := newMemStore(t)
	scanner := &stubScanner{bundle: &models.EvidenceBundle{
		ScanID:      "scan-1",
		ScannedAt:   time.Now(),
		EmailPolicy: models.EmailPolicyEvidence{Present: models.SignalAbsent},
		Warnings:    []models.Warning{{Type: models.WarningDMARC, Severity: models.SeverityMedium, Message: "No DMARC record"}},
	}}
	svc := assessment.NewService(store, scanner, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "tilt_test_total", Help: "test"}))

	cfg := &config.Config{SessionSecret: "test-secret-test-secret-32bytes!"}
	return &testServer{
		t:       t,
		router:  NewRouter(cfg, handlers.New(store, svc, log), reg),
		store:   store,
		scanner: scanner,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cs := w.Result().Cookies(); len(cs) > 0 {
		s.cookies = cs
	}
	return w
}

func (s *testServer) login() {
	s.t.Helper()
	w := s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "correct-horse"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tilt_test_total")
}

func TestRouter_Auth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/vendors", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.login()
	w = s.do(http.MethodGet, "/session", nil)
	assert.JSONEq(t, `{"authenticated":true,"username":"admin"}`, w.Body.String())

	w = s.do(http.MethodPost, "/change-password", gin.H{"current_password": "correct-horse", "new_password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/change-password", gin.H{"current_password": "wrong", "new_password": "long-enough-pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/change-password", gin.H{"current_password": "correct-horse", "new_password": "long-enough-pw"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/vendors", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_VendorLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/vendors", gin.H{
		"name":                "Acme",
		"status":              "Active",
		"data_classification": 3,
		"answers":             gin.H{"1": 5, "2": 5},
		"osint_target":        gin.H{"primary_domain": "https://acme.com"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.VendorAssessment
	decode(t, w, &created)
	assert.Equal(t, 20, created.Vulnerability)
	assert.Equal(t, 3.0, created.Impact)
	assert.Equal(t, "acme.com", created.Target.PrimaryDomain)

	w = s.do(http.MethodPost, "/vendors", gin.H{"name": "Bad", "data_classification": 3, "answers": gin.H{"1": 9}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/vendors/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/vendors/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/osint/scan/1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var scanned struct {
		Vendor   models.VendorAssessment `json:"vendor"`
		Evidence models.EvidenceBundle   `json:"evidence"`
	}
	decode(t, w, &scanned)
	assert.Equal(t, 60, scanned.Vendor.Vulnerability)
	assert.Equal(t, models.SignalAbsent, scanned.Evidence.EmailPolicy.Present)

	w = s.do(http.MethodPost, "/vendors/1/acknowledge", gin.H{"acknowledged": true})
	require.Equal(t, http.StatusOK, w.Code)
	var acked models.VendorAssessment
	decode(t, w, &acked)
	assert.True(t, acked.Evidence.Acknowledged)

	w = s.do(http.MethodPut, "/vendors/1", gin.H{"name": "Acme", "status": "Prohibited", "data_classification": 3, "answers": gin.H{"1": 5, "2": 5}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.VendorAssessment
	decode(t, w, &updated)
	assert.Equal(t, 60, updated.Vulnerability, "evidence survives an edit")

	w = s.do(http.MethodGet, "/vendors/ranked", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ranked []models.VendorAssessment
	decode(t, w, &ranked)
	require.Len(t, ranked, 1)

	w = s.do(http.MethodDelete, "/vendors/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, "/vendors/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AcknowledgeChunkedBody(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/vendors", gin.H{"name": "Acme", "data_classification": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/osint/scan/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/vendors/1/acknowledge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var va models.VendorAssessment
	decode(t, w, &va)
	assert.True(t, va.Evidence.Acknowledged, "no body acknowledges")

	// unknown length, as with chunked transfer encoding
	req := httptest.NewRequest(http.MethodPost, "/vendors/1/acknowledge", io.MultiReader(strings.NewReader(`{"acknowledged": false}`)))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, int64(-1), req.ContentLength)
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &va)
	assert.False(t, va.Evidence.Acknowledged)
}

func TestRouter_ForcedScanRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/vendors", gin.H{"name": "Acme", "data_classification": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	s.scanner.err = &osint.RateLimitedError{RetryAfter: 1500 * time.Millisecond}
	w = s.do(http.MethodPost, "/osint/scan/1?force=true", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	w = s.do(http.MethodPost, "/osint/scan/1?force=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Calculate(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/assessment/calculate", gin.H{"answers": gin.H{"1": 5, "2": 5}, "data_classification": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res map[string]any
	decode(t, w, &res)
	assert.Equal(t, 20.0, res["vulnerability"])

	w = s.do(http.MethodPost, "/assessment/calculate", gin.H{
		"assessment_type":     "cloud",
		"cloud_scores":        gin.H{"1": 0},
		"data_classification": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	cloud := res["cloud"].(map[string]any)
	assert.Equal(t, "REJECT", cloud["status"])
	assert.Equal(t, "red", cloud["status_color"])
	assert.Equal(t, 100.0, res["vulnerability"])

	w = s.do(http.MethodPost, "/assessment/calculate", gin.H{"answers": gin.H{"1": 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "answers[1]"))
}

func TestRouter_CatalogAndSettings(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodGet, "/settings", nil)
	assert.JSONEq(t, `{"orgName":"Your Organisation"}`, w.Body.String())

	w = s.do(http.MethodPost, "/settings", gin.H{"orgName": "Initech"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/settings", nil)
	assert.JSONEq(t, `{"orgName":"Initech"}`, w.Body.String())

	w = s.do(http.MethodPost, "/questions/standard", gin.H{"question": "Logging?", "weight": "Extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/questions/standard", gin.H{"question": "Logging?", "weight": "High", "maturity_levels": gin.H{"1": "none", "5": "SIEM"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/questions/standard", nil)
	var qs []models.Question
	decode(t, w, &qs)
	assert.Len(t, qs, 3)

	w = s.do(http.MethodPost, "/questions/cloud", gin.H{"criterion": "Backups", "criticality": "High", "points": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/questions/standard/2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, "/questions/cloud/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
