package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/process"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recommendScript fakes the recommended-questions side of the AI service:
// one GENERATING snapshot, then the scripted terminal snapshot.
type recommendScript struct {
	mu         sync.Mutex
	taskId     string
	terminal   adapter.RecommendedQuestionsTask
	seen       int
	lastSubmit *adapter.SubmitRecommendedQuestionsRequest
}

func newRecommendServer(t *testing.T, script *recommendScript) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/recommended-questions", func(w http.ResponseWriter, r *http.Request) {
		var req adapter.SubmitRecommendedQuestionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		script.mu.Lock()
		script.lastSubmit = &req
		script.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": script.taskId})
	})
	mux.HandleFunc("/v1/recommended-questions/", func(w http.ResponseWriter, r *http.Request) {
		script.mu.Lock()
		defer script.mu.Unlock()
		script.seen++
		if script.seen == 1 {
			json.NewEncoder(w).Encode(adapter.RecommendedQuestionsTask{Status: adapter.RecommendedStatusGenerating})
			return
		}
		json.NewEncoder(w).Encode(script.terminal)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func publishTerminalMessage(t *testing.T, pubSub *gochannel.GoChannel, topic string, payload dto.AskTerminalMessage) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), raw)))
}

func TestConsumerStoresRecommendedQuestions(t *testing.T) {
	script := &recommendScript{
		taskId: "rq-1",
		terminal: adapter.RecommendedQuestionsTask{
			Status: adapter.RecommendedStatusFinished,
			Questions: []adapter.RecommendedQuestion{
				{Question: "What is the bestselling book?", Sql: "SELECT title FROM book ORDER BY sales DESC LIMIT 1"},
				{Question: "How many authors published last year?"},
			},
		},
	}
	server := newRecommendServer(t, script)

	store := newFakeStore()
	delivery := &recordingDelivery{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	userId := uuid.New()
	threadId := uuid.New()
	store.threads[threadId] = &entity.Thread{Id: threadId, UserId: userId, CreatedAt: time.Now()}

	// Seven prior answered questions; the seed must keep only the five most
	// recent distinct ones, then append the triggering question.
	questions := []string{"q one", "q two", "q two", "q three", "q four", "q five", "q six"}
	base := time.Now().Add(-time.Hour)
	for i, q := range questions {
		id := uuid.New()
		store.responses[id] = &entity.ThreadResponse{
			Id:        id,
			ThreadId:  threadId,
			Question:  q,
			Status:    string(process.StateFinished),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}

	cs := NewConsumerService(pubSub, "ASK_TERMINAL", store,
		adapter.NewClient(server.URL, nopLogger{}), delivery, nopLogger{}, 5*time.Millisecond)
	require.NoError(t, cs.Consume(context.Background()))

	publishTerminalMessage(t, pubSub, "ASK_TERMINAL", dto.AskTerminalMessage{
		ThreadId: threadId,
		Question: "What is a data model?",
		Status:   string(process.StateFinished),
		TaskType: string(adapter.TaskTypeGeneral),
	})

	require.Eventually(t, func() bool {
		return len(store.getThread(threadId).RecommendedQuestions) == 2
	}, 2*time.Second, 5*time.Millisecond)

	script.mu.Lock()
	require.NotNil(t, script.lastSubmit)
	assert.Equal(t, []string{
		"q six", "q five", "q four", "q three", "q two",
		"What is a data model?",
	}, script.lastSubmit.Questions)
	script.mu.Unlock()

	thread := store.getThread(threadId)
	assert.Equal(t, "What is the bestselling book?", thread.RecommendedQuestions[0].Question)
	assert.Equal(t, "SELECT title FROM book ORDER BY sales DESC LIMIT 1", thread.RecommendedQuestions[0].Sql)

	require.Eventually(t, func() bool {
		return len(delivery.ofType("recommended_questions")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	pushed := delivery.ofType("recommended_questions")[0]
	assert.Equal(t, userId, pushed.userID)
	payload := pushed.data.(dto.RecommendedQuestionsResponse)
	assert.Equal(t, adapter.RecommendedStatusFinished, payload.Status)
	assert.Len(t, payload.Questions, 2)
}

func TestConsumerDropsMessageForDeletedThread(t *testing.T) {
	script := &recommendScript{taskId: "rq-2", terminal: adapter.RecommendedQuestionsTask{Status: adapter.RecommendedStatusFinished}}
	server := newRecommendServer(t, script)

	store := newFakeStore()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	cs := NewConsumerService(pubSub, "ASK_TERMINAL", store,
		adapter.NewClient(server.URL, nopLogger{}), nil, nopLogger{}, 5*time.Millisecond)
	require.NoError(t, cs.Consume(context.Background()))

	publishTerminalMessage(t, pubSub, "ASK_TERMINAL", dto.AskTerminalMessage{
		ThreadId: uuid.New(),
		Question: "orphaned",
	})

	// The message is acked without ever reaching the AI service.
	time.Sleep(50 * time.Millisecond)
	script.mu.Lock()
	assert.Nil(t, script.lastSubmit)
	script.mu.Unlock()
}

func TestConsumerLeavesThreadUntouchedOnFailedGeneration(t *testing.T) {
	script := &recommendScript{
		taskId: "rq-3",
		terminal: adapter.RecommendedQuestionsTask{
			Status: adapter.RecommendedStatusFailed,
			Error:  &adapter.TaskError{Code: "OTHERS", Message: "llm unavailable"},
		},
	}
	server := newRecommendServer(t, script)

	store := newFakeStore()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	threadId := uuid.New()
	store.threads[threadId] = &entity.Thread{Id: threadId, UserId: uuid.New(), CreatedAt: time.Now()}

	cs := NewConsumerService(pubSub, "ASK_TERMINAL", store,
		adapter.NewClient(server.URL, nopLogger{}), nil, nopLogger{}, 5*time.Millisecond)
	require.NoError(t, cs.Consume(context.Background()))

	publishTerminalMessage(t, pubSub, "ASK_TERMINAL", dto.AskTerminalMessage{
		ThreadId: threadId,
		Question: "doomed",
	})

	require.Eventually(t, func() bool {
		script.mu.Lock()
		defer script.mu.Unlock()
		return script.seen >= 2
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, store.getThread(threadId).RecommendedQuestions)
}
