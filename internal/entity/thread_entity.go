package entity

import (
	"time"

	"github.com/google/uuid"
)

// Thread is an ordered conversation of responses over one project's model.
type Thread struct {
	Id                   uuid.UUID
	ProjectId            uuid.UUID
	UserId               uuid.UUID
	Summary              string
	RecommendedQuestions []RecommendedQuestionItem
	CreatedAt            time.Time
	UpdatedAt            *time.Time
	DeletedAt            *time.Time
	IsDeleted            bool
}

// RecommendedQuestionItem is an AI-suggested follow-up persisted on the thread.
type RecommendedQuestionItem struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
	Sql      string `json:"sql,omitempty"`
}
