package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ThreadResponse struct {
	Id       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ThreadId uuid.UUID `gorm:"type:uuid;not null;index"`
	QueryId  string    `gorm:"type:text;index"` // remote task id, changes across adjust/re-run
	Question string    `gorm:"type:text;not null"`
	Sql      string    `gorm:"type:text"`
	Status   string    `gorm:"type:text;not null"`
	TaskType string    `gorm:"type:text"`

	Error           datatypes.JSON `gorm:"type:jsonb"`
	AnswerDetail    datatypes.JSON `gorm:"type:jsonb"`
	BreakdownDetail datatypes.JSON `gorm:"type:jsonb"`
	ChartDetail     datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ThreadResponse) TableName() string {
	return "thread_responses"
}
