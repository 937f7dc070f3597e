package dto

import (
	"github.com/google/uuid"
)

type AskRequest struct {
	ThreadId uuid.UUID `json:"thread_id" validate:"required"`
	Question string    `json:"question" validate:"required"`
}

type AskResponse struct {
	QueryId    string    `json:"query_id"`
	ResponseId uuid.UUID `json:"response_id"`
}

type StopAskRequest struct {
	QueryId string `json:"query_id" validate:"required"`
}

type TaskErrorDTO struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	ShortMessage string `json:"short_message,omitempty"`
}

type CandidateDTO struct {
	Sql  string `json:"sql"`
	Type string `json:"type,omitempty"`
}

type AskingTaskResponse struct {
	QueryId           string         `json:"query_id"`
	Status            string         `json:"status"`
	Type              string         `json:"type,omitempty"`
	Candidates        []CandidateDTO `json:"candidates,omitempty"`
	Error             *TaskErrorDTO  `json:"error,omitempty"`
	RephrasedQuestion string         `json:"rephrased_question,omitempty"`
	IntentReasoning   string         `json:"intent_reasoning,omitempty"`
}

type RecommendedQuestionDTO struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
	Sql      string `json:"sql,omitempty"`
}

type RecommendedQuestionsResponse struct {
	Status    string                   `json:"status"`
	Questions []RecommendedQuestionDTO `json:"questions"`
	Error     *TaskErrorDTO            `json:"error,omitempty"`
}
