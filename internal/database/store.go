package database

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tilt-dashboard/internal/assessment"
	"tilt-dashboard/internal/models"
)

// Store is the gorm-backed repository behind the assessment service and
// the catalog endpoints.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return assessment.ErrNotFound
	}
	return err
}

func (s *Store) GetVendor(ctx context.Context, id uint) (*models.VendorAssessment, error) {
	var va models.VendorAssessment
	if err := s.db.WithContext(ctx).First(&va, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &va, nil
}

func (s *Store) ListVendors(ctx context.Context) ([]models.VendorAssessment, error) {
	var list []models.VendorAssessment
	if err := s.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) SaveVendor(ctx context.Context, va *models.VendorAssessment) error {
	if va.ID == 0 {
		return s.db.WithContext(ctx).Create(va).Error
	}
	return s.db.WithContext(ctx).Save(va).Error
}

func (s *Store) DeleteVendor(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.VendorAssessment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]models.Question, error) {
	var list []models.Question
	if err := s.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) SaveQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == 0 {
		return s.db.WithContext(ctx).Create(q).Error
	}
	res := s.db.WithContext(ctx).Model(q).Select("*").Updates(q)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Question{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (s *Store) ListCriteria(ctx context.Context) ([]models.CloudCriterion, error) {
	var list []models.CloudCriterion
	if err := s.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) SaveCriterion(ctx context.Context, c *models.CloudCriterion) error {
	if c.ID == 0 {
		return s.db.WithContext(ctx).Create(c).Error
	}
	res := s.db.WithContext(ctx).Model(c).Select("*").Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCriterion(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.CloudCriterion{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows)+1)
	out[models.SettingOrgName] = models.DefaultOrgName
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, values map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			if err := tx.Save(&models.Setting{Key: k, Value: v}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) FindUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) SetPassword(ctx context.Context, id uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", string(hash)).Error
}
