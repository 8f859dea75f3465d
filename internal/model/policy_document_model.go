package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyDocument is one document of the support corpus (return policy,
// shipping FAQ, product guide, ...). Chunks are embedded asynchronously
// after ingestion.
type PolicyDocument struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title     string         `gorm:"type:varchar(255);not null"`
	Content   string         `gorm:"type:text;not null"`
	Category  string         `gorm:"type:varchar(100);index"` // "returns" | "shipping" | "product" | ...
	Indexed   bool           `gorm:"default:false"`           // true once chunks exist
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (PolicyDocument) TableName() string {
	return "policy_documents"
}
