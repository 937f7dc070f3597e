package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Thread struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectId            uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId               uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Summary              string         `gorm:"type:text;not null"`
	RecommendedQuestions datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (Thread) TableName() string {
	return "threads"
}
