package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ApiHistory struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	ThreadId        *uuid.UUID     `gorm:"type:uuid;index"`
	ApiType         string         `gorm:"type:text;not null;index"`
	RequestPayload  datatypes.JSON `gorm:"type:jsonb"`
	ResponsePayload datatypes.JSON `gorm:"type:jsonb"`
	StatusCode      int            `gorm:"not null"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
}

func (ApiHistory) TableName() string {
	return "api_histories"
}
