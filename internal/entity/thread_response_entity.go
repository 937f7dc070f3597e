package entity

import (
	"time"

	"github.com/google/uuid"
)

// ThreadResponse is one question-answer unit within a thread. The response id
// is stable for the lifetime of the unit; the query id changes across
// adjustment and re-run cycles.
type ThreadResponse struct {
	Id       uuid.UUID
	ThreadId uuid.UUID
	QueryId  string
	Question string
	Sql      string
	Status   string
	TaskType string

	Error           *ResponseError
	AnswerDetail    *AnswerDetail
	BreakdownDetail map[string]interface{}
	ChartDetail     map[string]interface{}

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ResponseError carries the short and full failure message rendered inline.
type ResponseError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	ShortMessage string `json:"short_message,omitempty"`
}

// AnswerDetail holds the streamed answer text and how the stream ended.
type AnswerDetail struct {
	Status  string `json:"status"` // STREAMING | FINISHED | INTERRUPTED
	Content string `json:"content"`
}

const (
	AnswerDetailStreaming   = "STREAMING"
	AnswerDetailFinished    = "FINISHED"
	AnswerDetailInterrupted = "INTERRUPTED"
)
