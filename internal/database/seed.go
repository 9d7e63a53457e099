package database

import (
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tilt-dashboard/internal/catalog"
	"tilt-dashboard/internal/models"
)

type SeedOptions struct {
	AdminUsername string
	AdminPassword string
	Catalog       *catalog.Catalog
}

// Seed fills an empty database with the operator account, the default
// catalog and settings. It is safe to run on every start.
func Seed(db *gorm.DB, opts SeedOptions, log logrus.FieldLogger) error {
	if err := createDefaultAdmin(db, opts.AdminUsername, opts.AdminPassword, log); err != nil {
		return err
	}
	if opts.Catalog != nil {
		if err := seedQuestions(db, opts.Catalog.Questions, log); err != nil {
			return err
		}
		if err := seedCriteria(db, opts.Catalog.Criteria, log); err != nil {
			return err
		}
	}
	return seedSettings(db)
}

// the operator account only comes from config
func createDefaultAdmin(db *gorm.DB, username, password string, log logrus.FieldLogger) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{Username: username, PasswordHash: string(hash)}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.WithField("username", username).Warn("created default operator account, change its password")
	return nil
}

func seedQuestions(db *gorm.DB, questions []models.Question, log logrus.FieldLogger) error {
	var count int64
	if err := db.Model(&models.Question{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || len(questions) == 0 {
		return nil
	}
	if err := db.Create(&questions).Error; err != nil {
		return err
	}
	log.WithField("questions", len(questions)).Info("seeded standard questions")
	return syncSequence(db, "questions")
}

// seedCriteria inserts the default scorecard on first start. Later starts
// only back-fill maturity levels on rows that have none.
func seedCriteria(db *gorm.DB, criteria []models.CloudCriterion, log logrus.FieldLogger) error {
	if len(criteria) == 0 {
		return nil
	}
	var count int64
	if err := db.Model(&models.CloudCriterion{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := db.Create(&criteria).Error; err != nil {
			return err
		}
		log.WithField("criteria", len(criteria)).Info("seeded cloud criteria")
		return syncSequence(db, "cloud_criteria")
	}

	for _, c := range criteria {
		var existing models.CloudCriterion
		err := db.First(&existing, c.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if len(existing.MaturityLevels) > 0 {
			continue
		}
		if err := db.Model(&existing).Select("*").Updates(c).Error; err != nil {
			return err
		}
		log.WithField("criterion_id", c.ID).Info("back-filled criterion maturity levels")
	}
	return nil
}

func seedSettings(db *gorm.DB) error {
	var org models.Setting
	err := db.First(&org, "key = ?", models.SettingOrgName).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Create(&models.Setting{Key: models.SettingOrgName, Value: models.DefaultOrgName}).Error
	case err != nil:
		return err
	case org.Value == "Your Organization":
		return db.Model(&org).Update("value", models.DefaultOrgName).Error
	}
	return nil
}

// syncSequence moves a Postgres serial past explicitly inserted ids.
func syncSequence(db *gorm.DB, table string) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec("SELECT setval(pg_get_serial_sequence(?, 'id'), (SELECT COALESCE(MAX(id), 1) FROM " + table + "))", table).Error
}
