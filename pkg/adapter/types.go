package adapter

import (
	"ai-askdata-be/pkg/process"
)

// TaskType classifies what the remote service decided a question is.
type TaskType string

const (
	TaskTypeTextToSQL       TaskType = "TEXT_TO_SQL"
	TaskTypeGeneral         TaskType = "GENERAL"
	TaskTypeMisleadingQuery TaskType = "MISLEADING_QUERY"
)

// TaskError is the remote service's failure detail.
type TaskError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	ShortMessage string `json:"shortMessage"`
}

// Candidate is one generated SQL answer.
type Candidate struct {
	Sql  string `json:"sql"`
	Type string `json:"type,omitempty"`
}

// AskingTask is the remote-owned record for one submitted question. It is
// observed read-only through polling and becomes immutable once terminal.
type AskingTask struct {
	QueryId           string        `json:"queryId"`
	Status            process.State `json:"status"`
	Type              TaskType      `json:"type"`
	Candidates        []Candidate   `json:"candidates"`
	Error             *TaskError    `json:"error,omitempty"`
	RephrasedQuestion string        `json:"rephrasedQuestion,omitempty"`
	IntentReasoning   string        `json:"intentReasoning,omitempty"`
}

// RecommendedQuestion is one AI-suggested follow-up.
type RecommendedQuestion struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
	Sql      string `json:"sql,omitempty"`
}

// RecommendedQuestionsTask mirrors AskingTask for the follow-up generation
// flow: remote-owned, polled read-only.
type RecommendedQuestionsTask struct {
	Id        string                `json:"id"`
	Status    string                `json:"status"`
	Questions []RecommendedQuestion `json:"questions"`
	Error     *TaskError            `json:"error,omitempty"`
}

const (
	RecommendedStatusGenerating = "GENERATING"
	RecommendedStatusFinished   = "FINISHED"
	RecommendedStatusFailed     = "FAILED"
)

// SubmitAskRequest carries the question plus conversational context.
type SubmitAskRequest struct {
	Question  string   `json:"question"`
	ThreadId  string   `json:"threadId,omitempty"`
	Histories []string `json:"histories,omitempty"`
}

// SubmitRecommendedQuestionsRequest seeds follow-up generation with prior
// thread questions.
type SubmitRecommendedQuestionsRequest struct {
	Questions    []string `json:"questions"`
	MaxQuestions int      `json:"maxQuestions,omitempty"`
}

// AdjustReasoningRequest revises the reasoning steps behind a response.
type AdjustReasoningRequest struct {
	ResponseId string `json:"responseId"`
	Steps      string `json:"steps"`
}

// AdjustSQLRequest replaces a response's SQL directly; no generation follows.
type AdjustSQLRequest struct {
	ResponseId string `json:"responseId"`
	Sql        string `json:"sql"`
}

// AdjustedResponse is the immediately-updated response for a direct SQL edit.
type AdjustedResponse struct {
	ResponseId string `json:"responseId"`
	Sql        string `json:"sql"`
	Summary    string `json:"summary,omitempty"`
}

// ResponseProgress reports generation progress via the response resource
// itself, used by re-run where no detached task object exists.
type ResponseProgress struct {
	ResponseId string        `json:"responseId"`
	QueryId    string        `json:"queryId,omitempty"`
	Status     process.State `json:"status"`
	Sql        string        `json:"sql,omitempty"`
	Error      *TaskError    `json:"error,omitempty"`
}

// RunSQLResult is the passthrough result of executing SQL on the deployed model.
type RunSQLResult struct {
	Records   []map[string]interface{} `json:"records"`
	Columns   []string                 `json:"columns"`
	TotalRows int                      `json:"totalRows"`
}

// VegaSpecResult carries a generated chart spec.
type VegaSpecResult struct {
	VegaSpec map[string]interface{} `json:"vegaSpec"`
}

// SummaryResult carries a generated natural-language summary.
type SummaryResult struct {
	Summary string `json:"summary"`
}
