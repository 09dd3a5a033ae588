package repository

import (
	"github.com/gitreadapp/GitRead/app/models"
	"gorm.io/gorm"
)

// readmeRepository implements the ReadmeRepository interface
type readmeRepository struct {
	db *gorm.DB
}

// NewReadmeRepository creates a new readme repository instance
func NewReadmeRepository(db *gorm.DB) ReadmeRepository {
	return &readmeRepository{db: db}
}

// Create stores a generated readme in the database
func (r *readmeRepository) Create(readme *models.GeneratedReadme) error {
	return r.db.Create(readme).Error
}

// GetByUUID retrieves a generated readme by its UUID
func (r *readmeRepository) GetByUUID(uuid string) (*models.GeneratedReadme, error) {
	var readme models.GeneratedReadme
	err := r.db.Where("uuid = ?", uuid).First(&readme).Error
	if err != nil {
		return nil, err
	}
	return &readme, nil
}

// GetByUserID retrieves a user's generated readmes, newest first, with pagination
func (r *readmeRepository) GetByUserID(userID string, offset, limit int) ([]models.GeneratedReadme, error) {
	var readmes []models.GeneratedReadme
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&readmes).Error
	return readmes, err
}

// CountByUserID returns the number of readmes a user has generated
func (r *readmeRepository) CountByUserID(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.GeneratedReadme{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Delete removes a generated readme by its ID
func (r *readmeRepository) Delete(id uint) error {
	return r.db.Delete(&models.GeneratedReadme{}, id).Error
}
