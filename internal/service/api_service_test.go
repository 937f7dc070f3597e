package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-askdata-be/internal/constant"
	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/process"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApiHarness(t *testing.T, serverURL string, deployed bool) (*fakeStore, IApiService, uuid.UUID) {
	t.Helper()
	store := newFakeStore()
	projectId := uuid.New()
	if deployed {
		store.deployments = append(store.deployments, &entity.Deployment{
			Id:        uuid.New(),
			ProjectId: projectId,
			Status:    entity.DeploymentStatusDeployed,
			CreatedAt: time.Now(),
		})
	}
	svc := NewApiService(store, adapter.NewClient(serverURL, nopLogger{}), nopLogger{},
		5*time.Millisecond, time.Second)
	return store, svc, projectId
}

func TestRunSQLRequiresDeployment(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, svc, projectId := newApiHarness(t, server.URL, false)

	_, err := svc.RunSQL(context.Background(), projectId, &dto.RunSQLRequest{Sql: "SELECT 1"})
	require.Error(t, err)
	appErr, ok := serverutils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "NO_DEPLOYMENT_FOUND", appErr.Code)
}

func TestRunSQLRecordsHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sql/run", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(adapter.RunSQLResult{
			Records:   []map[string]interface{}{{"count": 42}},
			Columns:   []string{"count"},
			TotalRows: 1,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, svc, projectId := newApiHarness(t, server.URL, true)

	resp, err := svc.RunSQL(context.Background(), projectId, &dto.RunSQLRequest{Sql: "SELECT COUNT(*) FROM book", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalRows)
	assert.Equal(t, []string{"count"}, resp.Columns)
	assert.NotEqual(t, uuid.Nil, resp.ThreadId)

	require.Equal(t, 1, store.historyCount())
	record := store.histories[0]
	assert.Equal(t, entity.ApiTypeRunSQL, record.ApiType)
	assert.Equal(t, 200, record.StatusCode)
	assert.Equal(t, projectId, record.ProjectId)
}

func TestRunSQLKeepsProvidedThreadId(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sql/run", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(adapter.RunSQLResult{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, svc, projectId := newApiHarness(t, server.URL, true)

	threadId := uuid.New()
	resp, err := svc.RunSQL(context.Background(), projectId, &dto.RunSQLRequest{Sql: "SELECT 1", ThreadId: &threadId})
	require.NoError(t, err)
	assert.Equal(t, threadId, resp.ThreadId)
	require.Equal(t, 1, store.historyCount())
	assert.Equal(t, threadId, *store.histories[0].ThreadId)
}

func TestRunSQLRecordsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sql/run", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "syntax error", http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, svc, projectId := newApiHarness(t, server.URL, true)

	_, err := svc.RunSQL(context.Background(), projectId, &dto.RunSQLRequest{Sql: "SELEKT 1"})
	require.Error(t, err)
	require.Equal(t, 1, store.historyCount())
	assert.Equal(t, 500, store.histories[0].StatusCode)
}

func TestGenerateSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/summaries", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(adapter.SummaryResult{Summary: "There are 42 books."})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, svc, projectId := newApiHarness(t, server.URL, true)

	resp, err := svc.GenerateSummary(context.Background(), projectId, &dto.GenerateSummaryRequest{
		Question: "How many books are there?",
		Sql:      "SELECT COUNT(*) FROM book",
	})
	require.NoError(t, err)
	assert.Equal(t, "There are 42 books.", resp.Summary)
	require.Equal(t, 1, store.historyCount())
	assert.Equal(t, entity.ApiTypeGenerateSummary, store.histories[0].ApiType)
}

// collectFrames is a FrameEmitter that records everything emitted.
type collectFrames struct {
	mu     sync.Mutex
	frames []dto.SQLGenerationFrame
}

func (c *collectFrames) emit(f dto.SQLGenerationFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *collectFrames) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = f.Event
	}
	return out
}

func TestStreamGenerateSQLEmitsEveryStage(t *testing.T) {
	// The poll sequence skips SEARCHING and PLANNING; the frame ladder must
	// still contain them.
	states := []process.State{process.StateUnderstanding, process.StateGenerating, process.StateFinished}
	var idx int
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/asks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"queryId": "q-api"})
	})
	mux.HandleFunc("/v1/asks/q-api/result", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		state := states[idx]
		if idx < len(states)-1 {
			idx++
		}
		mu.Unlock()
		task := adapter.AskingTask{Status: state, Type: adapter.TaskTypeTextToSQL}
		if state == process.StateFinished {
			task.Candidates = []adapter.Candidate{{Sql: "SELECT COUNT(*) FROM book"}}
		}
		json.NewEncoder(w).Encode(task)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, svc, projectId := newApiHarness(t, server.URL, true)

	sink := &collectFrames{}
	err := svc.StreamGenerateSQL(context.Background(), projectId,
		&dto.GenerateSQLRequest{Question: "How many books are there?"}, sink.emit)
	require.NoError(t, err)

	assert.Equal(t, []string{
		constant.SQLGenerationStart,
		constant.SQLGenerationUnderstanding,
		constant.SQLGenerationSearching,
		constant.SQLGenerationPlanning,
		constant.SQLGenerationGenerating,
		constant.SQLGenerationCorrecting,
		constant.SQLGenerationFinished,
		constant.SQLGenerationSuccess,
	}, sink.events())

	last := sink.frames[len(sink.frames)-1]
	assert.Equal(t, "SELECT COUNT(*) FROM book", last.Sql)

	require.Equal(t, 1, store.historyCount())
	assert.Equal(t, entity.ApiTypeStreamGenerateSQL, store.histories[0].ApiType)
	assert.Equal(t, 200, store.histories[0].StatusCode)
}

func TestStreamGenerateSQLFailsWithoutCandidates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/asks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"queryId": "q-empty"})
	})
	mux.HandleFunc("/v1/asks/q-empty/result", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(adapter.AskingTask{Status: process.StateFinished, Type: adapter.TaskTypeTextToSQL})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, svc, projectId := newApiHarness(t, server.URL, true)

	sink := &collectFrames{}
	err := svc.StreamGenerateSQL(context.Background(), projectId,
		&dto.GenerateSQLRequest{Question: "Show me the unknowable"}, sink.emit)
	require.NoError(t, err)

	events := sink.events()
	require.NotEmpty(t, events)
	assert.Equal(t, constant.SQLGenerationFailed, events[len(events)-1])
	assert.Equal(t, "no sql candidates generated", sink.frames[len(sink.frames)-1].Error)

	require.Equal(t, 1, store.historyCount())
	assert.Equal(t, 500, store.histories[0].StatusCode)
}

func TestStreamGenerateSQLTimesOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/asks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"queryId": "q-slow"})
	})
	mux.HandleFunc("/v1/asks/q-slow/result", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(adapter.AskingTask{Status: process.StateGenerating, Type: adapter.TaskTypeTextToSQL})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := newFakeStore()
	projectId := uuid.New()
	store.deployments = append(store.deployments, &entity.Deployment{
		Id: uuid.New(), ProjectId: projectId, Status: entity.DeploymentStatusDeployed, CreatedAt: time.Now(),
	})
	svc := NewApiService(store, adapter.NewClient(server.URL, nopLogger{}), nopLogger{},
		5*time.Millisecond, 50*time.Millisecond)

	sink := &collectFrames{}
	err := svc.StreamGenerateSQL(context.Background(), projectId,
		&dto.GenerateSQLRequest{Question: "How many books are there?"}, sink.emit)
	require.Error(t, err)

	events := sink.events()
	assert.Equal(t, constant.SQLGenerationStart, events[0])
	assert.Equal(t, constant.SQLGenerationFailed, events[len(events)-1])
	require.Equal(t, 1, store.historyCount())
	assert.Equal(t, 500, store.histories[0].StatusCode)
}
