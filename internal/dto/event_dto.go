package dto

import (
	"github.com/google/uuid"
)

// AskTerminalMessage is published on the in-process bus when an asking task
// reaches a terminal state that warrants a recommended-questions fan-out.
type AskTerminalMessage struct {
	ThreadId   uuid.UUID `json:"thread_id"`
	ResponseId uuid.UUID `json:"response_id"`
	QueryId    string    `json:"query_id"`
	Question   string    `json:"question"`
	Status     string    `json:"status"`
	TaskType   string    `json:"task_type"`
}

// AskProgressMessage is broadcast to websocket clients on every observed
// state change of an asking task.
type AskProgressMessage struct {
	ThreadId   uuid.UUID `json:"thread_id"`
	ResponseId uuid.UUID `json:"response_id"`
	QueryId    string    `json:"query_id"`
	Status     string    `json:"status"`
}
