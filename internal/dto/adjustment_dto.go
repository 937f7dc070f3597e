package dto

import (
	"github.com/google/uuid"
)

type AdjustSQLRequest struct {
	ResponseId uuid.UUID `json:"response_id" validate:"required"`
	Sql        string    `json:"sql" validate:"required"`
}

type AdjustReasoningRequest struct {
	ResponseId uuid.UUID `json:"response_id" validate:"required"`
	Steps      string    `json:"steps" validate:"required"`
}

type ReRunRequest struct {
	ResponseId uuid.UUID `json:"response_id" validate:"required"`
}

type AdjustmentResponse struct {
	ResponseId uuid.UUID `json:"response_id"`
	QueryId    string    `json:"query_id,omitempty"`
	Status     string    `json:"status"`
	Sql        string    `json:"sql,omitempty"`
}
