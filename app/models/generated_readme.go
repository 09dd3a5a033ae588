package models

import "time"

// GeneratedReadme stores a README produced for a user, newest first in
// history listings.
type GeneratedReadme struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID        string    `gorm:"type:varchar(191);not null;index" json:"user_id"`
	RepoURL       string    `gorm:"type:varchar(500);not null" json:"repo_url"`
	ReadmeContent string    `gorm:"type:longtext;not null" json:"readme_content"`
	InputTokens   int       `gorm:"default:0" json:"input_tokens"`
	OutputTokens  int       `gorm:"default:0" json:"output_tokens"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (GeneratedReadme) TableName() string {
	return "generated_readmes"
}
