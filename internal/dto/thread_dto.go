package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateThreadRequest struct {
	Summary string `json:"summary"`
}

type CreateThreadResponse struct {
	Id uuid.UUID `json:"id"`
}

type ThreadResponseDTO struct {
	Id        uuid.UUID                `json:"id"`
	QueryId   string                   `json:"query_id,omitempty"`
	Question  string                   `json:"question"`
	Sql       string                   `json:"sql,omitempty"`
	Status    string                   `json:"status"`
	TaskType  string                   `json:"task_type,omitempty"`
	Error     *TaskErrorDTO            `json:"error,omitempty"`
	Answer    *AnswerDetailDTO         `json:"answer,omitempty"`
	Breakdown map[string]interface{}   `json:"breakdown,omitempty"`
	Chart     map[string]interface{}   `json:"chart,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

type AnswerDetailDTO struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}

type GetThreadResponse struct {
	Id                   uuid.UUID                `json:"id"`
	Summary              string                   `json:"summary"`
	Responses            []ThreadResponseDTO      `json:"responses"`
	RecommendedQuestions []RecommendedQuestionDTO `json:"recommended_questions,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
}

type GetAllThreadsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Summary   string     `json:"summary"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
