package streaming

import (
	"context"
	"strings"
	"sync"

	"ai-askdata-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// AnswerStatus tags how a streamed answer ended. Interrupted (client went away
// before the done frame) is distinct from Finished for resumption and audit.
type AnswerStatus string

const (
	AnswerFinished    AnswerStatus = "FINISHED"
	AnswerInterrupted AnswerStatus = "INTERRUPTED"
)

// Persister stores the final (or partial) accumulated answer text.
type Persister interface {
	PersistAnswer(ctx context.Context, responseId uuid.UUID, text string, status AnswerStatus) error
}

// Accumulator is the server-side mirror of the answer stream: it keeps the
// in-flight text per response id while chunks are forwarded to the client,
// then persists exactly once when the stream ends or the client disconnects.
//
// The handler serving a given response id is the only writer for its entry.
// Finish and Interrupt both remove the entry, so whichever runs first wins and
// the other becomes a no-op.
type Accumulator struct {
	persist Persister
	logger  logger.ILogger

	mu      sync.Mutex
	buffers map[uuid.UUID]*strings.Builder
}

func NewAccumulator(persist Persister, log logger.ILogger) *Accumulator {
	return &Accumulator{
		persist: persist,
		logger:  log,
		buffers: make(map[uuid.UUID]*strings.Builder),
	}
}

// Append records an outbound chunk for responseId.
func (a *Accumulator) Append(responseId uuid.UUID, chunk string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.buffers[responseId]
	if !ok {
		buf = &strings.Builder{}
		a.buffers[responseId] = buf
	}
	buf.WriteString(chunk)
}

// take removes and returns the accumulated text. ok is false when another
// terminal path already claimed the entry.
func (a *Accumulator) take(responseId uuid.UUID) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.buffers[responseId]
	if !ok {
		return "", false
	}
	delete(a.buffers, responseId)
	return buf.String(), true
}

// Finish persists the accumulated answer with Finished status after the done
// frame was delivered.
func (a *Accumulator) Finish(ctx context.Context, responseId uuid.UUID) error {
	text, ok := a.take(responseId)
	if !ok {
		return nil
	}
	return a.persist.PersistAnswer(ctx, responseId, text, AnswerFinished)
}

// Interrupt persists whatever was accumulated before the client disconnected,
// with Interrupted status, so a later view of the thread still shows it.
func (a *Accumulator) Interrupt(ctx context.Context, responseId uuid.UUID) error {
	text, ok := a.take(responseId)
	if !ok {
		return nil
	}
	if a.logger != nil {
		a.logger.Info("Streaming", "Client disconnected mid-stream, persisting partial answer", map[string]interface{}{
			"response_id": responseId,
			"length":      len(text),
		})
	}
	return a.persist.PersistAnswer(ctx, responseId, text, AnswerInterrupted)
}
