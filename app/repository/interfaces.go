package repository

import (
	"github.com/gitreadapp/GitRead/app/models"
	"gorm.io/gorm"
)

// ReadmeRepository defines the interface for generated-readme database operations
type ReadmeRepository interface {
	Create(readme *models.GeneratedReadme) error
	GetByUUID(uuid string) (*models.GeneratedReadme, error)
	GetByUserID(userID string, offset, limit int) ([]models.GeneratedReadme, error)
	CountByUserID(userID string) (int64, error)
	Delete(id uint) error
}

// Repositories bundles all repository instances
type Repositories struct {
	Readme ReadmeRepository
}

// NewRepositories creates all repository instances for the given database handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Readme: NewReadmeRepository(db),
	}
}
