package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"tilt-dashboard/internal/assessment"
	"tilt-dashboard/internal/models"
)

// Store is what the catalog, settings and auth endpoints persist through.
type Store interface {
	FindUser(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	SetPassword(ctx context.Context, id uint, password string) error

	ListQuestions(ctx context.Context) ([]models.Question, error)
	SaveQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, id uint) error

	ListCriteria(ctx context.Context) ([]models.CloudCriterion, error)
	SaveCriterion(ctx context.Context, cr *models.CloudCriterion) error
	DeleteCriterion(ctx context.Context, id uint) error

	Settings(ctx context.Context) (map[string]string, error)
	SaveSettings(ctx context.Context, values map[string]string) error
}

type Handler struct {
	Store       Store
	Assessments *assessment.Service
	Log         logrus.FieldLogger
}

func New(store Store, svc *assessment.Service, log logrus.FieldLogger) *Handler {
	return &Handler{Store: store, Assessments: svc, Log: log.WithField("component", "api")}
}
