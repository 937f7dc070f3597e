package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/repository/memory"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/process"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adjustmentHarness struct {
	store   *fakeStore
	cache   *memory.ThreadCacheRepository
	service IAdjustmentService

	userId     uuid.UUID
	threadId   uuid.UUID
	responseId uuid.UUID
}

func newAdjustmentHarness(t *testing.T, serverURL string) *adjustmentHarness {
	t.Helper()
	store := newFakeStore()
	cache := memory.NewThreadCacheRepository()

	h := &adjustmentHarness{
		store:      store,
		cache:      cache,
		userId:     uuid.New(),
		threadId:   uuid.New(),
		responseId: uuid.New(),
	}
	store.threads[h.threadId] = &entity.Thread{Id: h.threadId, UserId: h.userId, CreatedAt: time.Now()}
	store.responses[h.responseId] = &entity.ThreadResponse{
		Id:        h.responseId,
		ThreadId:  h.threadId,
		QueryId:   "q-old",
		Question:  "How many books are there?",
		Sql:       "SELECT COUNT(*) FROM books",
		Status:    string(process.StateFinished),
		CreatedAt: time.Now().Add(-time.Minute),
	}
	cache.Save(&memory.CachedThread{Id: h.threadId, Responses: []*entity.ThreadResponse{store.responses[h.responseId]}})

	h.service = NewAdjustmentService(store, adapter.NewClient(serverURL, nopLogger{}), cache, nopLogger{}, 5*time.Millisecond)
	return h
}

func TestAdjustSQLAppliesSynchronously(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/adjustments/sql", func(w http.ResponseWriter, r *http.Request) {
		var req adapter.AdjustSQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(adapter.AdjustedResponse{ResponseId: req.ResponseId, Sql: req.Sql})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h := newAdjustmentHarness(t, server.URL)

	resp, err := h.service.AdjustSQL(context.Background(), h.userId, &dto.AdjustSQLRequest{
		ResponseId: h.responseId,
		Sql:        "SELECT COUNT(*) FROM book",
	})
	require.NoError(t, err)
	assert.Equal(t, string(process.StateFinished), resp.Status)
	assert.Equal(t, "SELECT COUNT(*) FROM book", resp.Sql)

	stored := h.store.getResponse(h.responseId)
	assert.Equal(t, "SELECT COUNT(*) FROM book", stored.Sql)
	assert.Equal(t, string(process.StateFinished), stored.Status)

	cached, ok := h.cache.Get(h.threadId)
	require.True(t, ok)
	require.Len(t, cached.Responses, 1)
	assert.Equal(t, "SELECT COUNT(*) FROM book", cached.Responses[0].Sql)
}

func TestAdjustReasoningAdoptsNewQueryId(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/adjustments/reasoning", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"queryId": "q-new"})
	})
	mux.HandleFunc("/v1/asks/q-new/result", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(adapter.AskingTask{
			Status:     process.StateFinished,
			Type:       adapter.TaskTypeTextToSQL,
			Candidates: []adapter.Candidate{{Sql: "SELECT COUNT(*) FROM book WHERE year > 2000"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h := newAdjustmentHarness(t, server.URL)

	resp, err := h.service.AdjustReasoningSteps(context.Background(), h.userId, &dto.AdjustReasoningRequest{
		ResponseId: h.responseId,
		Steps:      "only count modern editions",
	})
	require.NoError(t, err)
	assert.Equal(t, "q-new", resp.QueryId)
	assert.Equal(t, string(process.StateUnderstanding), resp.Status)

	// The response id stays stable across the query id swap.
	assert.Equal(t, h.responseId, resp.ResponseId)
	assert.Equal(t, "q-new", h.store.getResponse(h.responseId).QueryId)

	require.Eventually(t, func() bool {
		stored := h.store.getResponse(h.responseId)
		return stored.Status == string(process.StateFinished) &&
			stored.Sql == "SELECT COUNT(*) FROM book WHERE year > 2000"
	}, 2*time.Second, 5*time.Millisecond)

	// The projection was reconciled in place, not duplicated.
	cached, ok := h.cache.Get(h.threadId)
	require.True(t, ok)
	assert.Len(t, cached.Responses, 1)
	assert.Equal(t, "q-new", cached.Responses[0].QueryId)
}

func TestReRunTracksResponseProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/responses/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/rerun") {
			w.WriteHeader(http.StatusOK)
			return
		}
		json.NewEncoder(w).Encode(adapter.ResponseProgress{
			Status: process.StateFinished,
			Sql:    "SELECT COUNT(*) FROM book",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h := newAdjustmentHarness(t, server.URL)

	resp, err := h.service.ReRun(context.Background(), h.userId, &dto.ReRunRequest{ResponseId: h.responseId})
	require.NoError(t, err)
	assert.Equal(t, string(process.StateUnderstanding), resp.Status)
	assert.Equal(t, "q-old", resp.QueryId)

	require.Eventually(t, func() bool {
		stored := h.store.getResponse(h.responseId)
		return stored.Status == string(process.StateFinished) &&
			stored.Sql == "SELECT COUNT(*) FROM book"
	}, 2*time.Second, 5*time.Millisecond)

	// Progress carried no query id, so the known one is kept.
	assert.Equal(t, "q-old", h.store.getResponse(h.responseId).QueryId)
}

func TestAdjustmentRejectsForeignUser(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	h := newAdjustmentHarness(t, server.URL)

	_, err := h.service.AdjustSQL(context.Background(), uuid.New(), &dto.AdjustSQLRequest{
		ResponseId: h.responseId,
		Sql:        "SELECT 1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thread not found")

	_, err = h.service.ReRun(context.Background(), h.userId, &dto.ReRunRequest{ResponseId: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response not found")
}
