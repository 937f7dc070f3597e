package model

import (
	"time"

	"github.com/google/uuid"
)

type Deployment struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectId uuid.UUID `gorm:"type:uuid;not null;index"`
	Hash      string    `gorm:"type:text;not null"`
	Status    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Deployment) TableName() string {
	return "deployments"
}
