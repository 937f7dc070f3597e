package streaming

import (
	"bufio"
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type persistCall struct {
	text   string
	status AnswerStatus
}

type fakePersister struct {
	mu    sync.Mutex
	calls map[uuid.UUID][]persistCall
}

func newFakePersister() *fakePersister {
	return &fakePersister{calls: make(map[uuid.UUID][]persistCall)}
}

func (p *fakePersister) PersistAnswer(ctx context.Context, responseId uuid.UUID, text string, status AnswerStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[responseId] = append(p.calls[responseId], persistCall{text: text, status: status})
	return nil
}

func (p *fakePersister) callsFor(id uuid.UUID) []persistCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

func TestAccumulatorFinishPersistsFullText(t *testing.T) {
	persister := newFakePersister()
	a := NewAccumulator(persister, nil)
	id := uuid.New()

	a.Append(id, "hello ")
	a.Append(id, "world")
	require.NoError(t, a.Finish(context.Background(), id))

	calls := persister.callsFor(id)
	require.Len(t, calls, 1)
	assert.Equal(t, "hello world", calls[0].text)
	assert.Equal(t, AnswerFinished, calls[0].status)
}

func TestAccumulatorInterruptPersistsPartial(t *testing.T) {
	persister := newFakePersister()
	a := NewAccumulator(persister, nil)
	id := uuid.New()

	a.Append(id, "half an ans")
	require.NoError(t, a.Interrupt(context.Background(), id))

	calls := persister.callsFor(id)
	require.Len(t, calls, 1)
	assert.Equal(t, "half an ans", calls[0].text)
	assert.Equal(t, AnswerInterrupted, calls[0].status)
}

func TestAccumulatorPersistsExactlyOnce(t *testing.T) {
	persister := newFakePersister()
	a := NewAccumulator(persister, nil)
	id := uuid.New()

	a.Append(id, "text")
	require.NoError(t, a.Finish(context.Background(), id))

	// A late interrupt after finish must be a no-op, and vice versa.
	require.NoError(t, a.Interrupt(context.Background(), id))
	require.NoError(t, a.Finish(context.Background(), id))

	require.Len(t, persister.callsFor(id), 1)
}

func TestAccumulatorTracksResponsesIndependently(t *testing.T) {
	persister := newFakePersister()
	a := NewAccumulator(persister, nil)
	first, second := uuid.New(), uuid.New()

	a.Append(first, "one")
	a.Append(second, "two")

	require.NoError(t, a.Finish(context.Background(), first))
	require.NoError(t, a.Interrupt(context.Background(), second))

	assert.Equal(t, "one", persister.callsFor(first)[0].text)
	assert.Equal(t, "two", persister.callsFor(second)[0].text)
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Frame
		wantOk bool
	}{
		{"message frame", `data: {"message":"chunk"}`, Frame{Message: "chunk"}, true},
		{"done frame", `data: {"done":true}`, Frame{Done: true}, true},
		{"comment line", `: keep-alive`, Frame{}, false},
		{"blank line", ``, Frame{}, false},
		{"malformed json", `data: {nope}`, Frame{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFrame([]byte(tt.line))
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteEventRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, WriteEvent(w, Frame{Message: "hi"}))
	require.NoError(t, WriteDone(w))

	lines := bytes.Split(buf.Bytes(), []byte("\n\n"))
	first, ok := ParseFrame(lines[0])
	require.True(t, ok)
	assert.Equal(t, "hi", first.Message)

	second, ok := ParseFrame(lines[1])
	require.True(t, ok)
	assert.True(t, second.Done)
}
