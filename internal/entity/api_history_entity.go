package entity

import (
	"time"

	"github.com/google/uuid"
)

// ApiHistory is one audit record for a synchronous API v1 request.
type ApiHistory struct {
	Id              uuid.UUID
	ProjectId       uuid.UUID
	ThreadId        *uuid.UUID
	ApiType         string
	RequestPayload  map[string]interface{}
	ResponsePayload map[string]interface{}
	StatusCode      int
	CreatedAt       time.Time
}

const (
	ApiTypeRunSQL            = "RUN_SQL"
	ApiTypeGenerateVegaChart = "GENERATE_VEGA_CHART"
	ApiTypeGenerateSummary   = "GENERATE_SUMMARY"
	ApiTypeStreamGenerateSQL = "STREAM_GENERATE_SQL"
)
