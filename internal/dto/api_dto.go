package dto

import (
	"github.com/google/uuid"
)

type RunSQLRequest struct {
	Sql      string     `json:"sql" validate:"required"`
	ThreadId *uuid.UUID `json:"threadId,omitempty"`
	Limit    int        `json:"limit,omitempty"`
}

type RunSQLResponse struct {
	Records   []map[string]interface{} `json:"records"`
	Columns   []string                 `json:"columns"`
	ThreadId  uuid.UUID                `json:"threadId"`
	TotalRows int                      `json:"totalRows"`
}

type GenerateVegaChartRequest struct {
	Question   string     `json:"question" validate:"required"`
	Sql        string     `json:"sql" validate:"required"`
	ThreadId   *uuid.UUID `json:"threadId,omitempty"`
	SampleSize int        `json:"sampleSize,omitempty"`
}

type GenerateVegaChartResponse struct {
	VegaSpec map[string]interface{} `json:"vegaSpec"`
	ThreadId uuid.UUID              `json:"threadId"`
}

type GenerateSummaryRequest struct {
	Question string     `json:"question" validate:"required"`
	Sql      string     `json:"sql" validate:"required"`
	ThreadId *uuid.UUID `json:"threadId,omitempty"`
}

type GenerateSummaryResponse struct {
	Summary  string    `json:"summary"`
	ThreadId uuid.UUID `json:"threadId"`
}

type GenerateSQLRequest struct {
	Question string     `json:"question" validate:"required"`
	ThreadId *uuid.UUID `json:"threadId,omitempty"`
}

// SQLGenerationFrame is one SSE state-update frame of the streaming
// generate-SQL endpoint.
type SQLGenerationFrame struct {
	Event string `json:"event"`
	Sql   string `json:"sql,omitempty"`
	Error string `json:"error,omitempty"`
}
