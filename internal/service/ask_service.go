package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/repository/memory"
	"ai-askdata-be/internal/repository/specification"
	"ai-askdata-be/internal/repository/unitofwork"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/events"
	pktNats "ai-askdata-be/pkg/nats"
	"ai-askdata-be/pkg/poller"
	"ai-askdata-be/pkg/process"
	"ai-askdata-be/pkg/streaming"

	"github.com/google/uuid"
)

// ProgressDelivery pushes real-time task progress to connected clients.
// Typically implemented by the WebSocket Hub.
type ProgressDelivery interface {
	Send(userID uuid.UUID, messageType string, data interface{})
}

type IAskService interface {
	Ask(ctx context.Context, userId uuid.UUID, request *dto.AskRequest) (*dto.AskResponse, error)
	StopAsk(ctx context.Context, request *dto.StopAskRequest) error
	GetAskingTask(queryId string) (*dto.AskingTaskResponse, bool)
	GetStreamingAnswer(queryId string) (data string, loading bool, ok bool)
	ResolveQueryId(ctx context.Context, responseId uuid.UUID) (string, error)
	PersistAnswer(ctx context.Context, responseId uuid.UUID, text string, status streaming.AnswerStatus) error
}

// Terminal runs stay in the registry for this long so late UI polls still
// observe the final snapshot; afterwards the run is evicted and the stored
// response row becomes the only record.
const defaultRunRetention = 10 * time.Minute

// askRun is the in-memory orchestration state for one submitted question.
// It lives from submission until the retention window after the terminal
// transition expires.
type askRun struct {
	userId     uuid.UUID
	threadId   uuid.UUID
	responseId uuid.UUID
	question   string
	createdAt  time.Time

	machine  *process.Machine
	poller   *poller.Poller[*adapter.AskingTask]
	consumer *streaming.Consumer

	mu         sync.Mutex
	streamOpen bool
	finalized  bool
}

type askService struct {
	uowFactory       unitofwork.RepositoryFactory
	aiClient         *adapter.Client
	threadCache      *memory.ThreadCacheRepository
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	delivery         ProgressDelivery
	logger           logger.ILogger

	pollInterval    time.Duration
	stopGracePeriod time.Duration
	runRetention    time.Duration

	mu   sync.RWMutex
	runs map[string]*askRun
}

func NewAskService(
	uowFactory unitofwork.RepositoryFactory,
	aiClient *adapter.Client,
	threadCache *memory.ThreadCacheRepository,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	delivery ProgressDelivery,
	log logger.ILogger,
	pollInterval time.Duration,
	stopGracePeriod time.Duration,
) IAskService {
	return &askService{
		uowFactory:       uowFactory,
		aiClient:         aiClient,
		threadCache:      threadCache,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		delivery:         delivery,
		logger:           log,
		pollInterval:     pollInterval,
		stopGracePeriod:  stopGracePeriod,
		runRetention:     defaultRunRetention,
		runs:             make(map[string]*askRun),
	}
}

func (s *askService) Ask(ctx context.Context, userId uuid.UUID, request *dto.AskRequest) (*dto.AskResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: request.ThreadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, serverutils.NewNotFoundError("thread not found")
	}

	priorResponses, err := uow.ThreadResponseRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: thread.Id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	// Mount the thread projection so reconciliation has something to update.
	// An existing projection is kept as-is: it may already carry optimistic
	// entries from a concurrent run.
	if _, mounted := s.threadCache.Get(thread.Id); !mounted {
		s.threadCache.Save(&memory.CachedThread{
			Id:        thread.Id,
			Responses: priorResponses,
		})
	}

	histories := make([]string, 0, len(priorResponses))
	for _, r := range priorResponses {
		if r.Sql != "" {
			histories = append(histories, r.Sql)
		}
	}

	queryId, err := s.aiClient.SubmitAsk(ctx, &adapter.SubmitAskRequest{
		Question:  request.Question,
		ThreadId:  thread.Id.String(),
		Histories: histories,
	})
	if err != nil {
		return nil, err
	}

	response := &entity.ThreadResponse{
		Id:        uuid.New(),
		ThreadId:  thread.Id,
		QueryId:   queryId,
		Question:  request.Question,
		Status:    string(process.StateUnderstanding),
		CreatedAt: time.Now(),
	}
	if err := uow.ThreadResponseRepository().Create(ctx, response); err != nil {
		return nil, err
	}

	run := &askRun{
		userId:     userId,
		threadId:   thread.Id,
		responseId: response.Id,
		question:   request.Question,
		createdAt:  response.CreatedAt,
		machine:    process.NewMachine(process.Permissive, s.logger),
		consumer:   streaming.NewConsumer(s.aiClient, s.logger),
	}
	if _, err := run.machine.TransitionTo(process.StateUnderstanding); err != nil {
		return nil, err
	}

	run.poller = poller.New(func(ctx context.Context) (*adapter.AskingTask, error) {
		return s.aiClient.GetAskResult(ctx, queryId)
	}, s.pollInterval)
	run.poller.OnTick(func(snap poller.Snapshot[*adapter.AskingTask]) {
		s.handleAskTick(queryId, run, snap)
	})

	s.mu.Lock()
	s.runs[queryId] = run
	s.mu.Unlock()

	// Polling outlives the HTTP request that started it.
	run.poller.Start(context.Background())

	s.logger.Info("AskService", "Asking task submitted", map[string]interface{}{
		"query_id":    queryId,
		"thread_id":   thread.Id,
		"response_id": response.Id,
	})

	return &dto.AskResponse{QueryId: queryId, ResponseId: response.Id}, nil
}

func (s *askService) handleAskTick(queryId string, run *askRun, snap poller.Snapshot[*adapter.AskingTask]) {
	if snap.Err != nil {
		// Transient fetch failures never kill the run; the next tick retries.
		s.logger.Warn("AskService", "Poll tick failed", map[string]interface{}{
			"query_id": queryId,
			"error":    snap.Err.Error(),
		})
		return
	}
	task := snap.Data
	if task == nil {
		return
	}

	previous := run.machine.Current()
	current, _ := run.machine.TransitionTo(task.Status)

	if current != previous {
		s.notifyProgress(run, queryId, current)
	}

	ctx := context.Background()

	// Optimistic projection update: once a TEXT_TO_SQL task reaches the
	// retrieval stage the response is shown in the thread view immediately,
	// before any SQL exists. An Understanding tick is too early to show.
	if task.Type == adapter.TaskTypeTextToSQL && !current.IsTerminal() && current.AtLeast(process.StateSearching) {
		s.threadCache.UpdateThreadCache(run.threadId, &entity.ThreadResponse{
			Id:        run.responseId,
			ThreadId:  run.threadId,
			QueryId:   queryId,
			Question:  run.question,
			Status:    string(current),
			TaskType:  string(task.Type),
			CreatedAt: run.createdAt,
		})
	}

	// General questions switch to the token stream as soon as planning
	// starts; the poll loop keeps running for the state machine.
	if task.Type == adapter.TaskTypeGeneral && current == process.StatePlanning {
		run.mu.Lock()
		alreadyOpen := run.streamOpen
		run.streamOpen = true
		run.mu.Unlock()
		if !alreadyOpen {
			if err := run.consumer.Start(ctx, queryId); err != nil {
				s.logger.Warn("AskService", "Failed to open answer stream", map[string]interface{}{
					"query_id": queryId,
					"error":    err.Error(),
				})
				run.mu.Lock()
				run.streamOpen = false
				run.mu.Unlock()
			}
		}
	}

	if current.IsTerminal() {
		s.finalizeRun(ctx, queryId, run, task, current)
	}
}

func (s *askService) finalizeRun(ctx context.Context, queryId string, run *askRun, task *adapter.AskingTask, terminal process.State) {
	run.mu.Lock()
	if run.finalized {
		run.mu.Unlock()
		return
	}
	run.finalized = true
	run.mu.Unlock()

	run.poller.Stop()

	// Only SQL generation distinguishes "finished empty-handed"; general and
	// misleading questions legitimately finish without candidates.
	final := terminal
	if task.Type == adapter.TaskTypeTextToSQL {
		final = process.Finalize(terminal, len(task.Candidates))
	}

	updated := &entity.ThreadResponse{
		Id:        run.responseId,
		ThreadId:  run.threadId,
		QueryId:   queryId,
		Question:  run.question,
		Status:    string(final),
		TaskType:  string(task.Type),
		CreatedAt: run.createdAt,
	}
	if len(task.Candidates) > 0 {
		updated.Sql = task.Candidates[0].Sql
	}
	if task.Error != nil {
		updated.Error = &entity.ResponseError{
			Code:         task.Error.Code,
			Message:      task.Error.Message,
			ShortMessage: task.Error.ShortMessage,
		}
	}
	if task.Type == adapter.TaskTypeGeneral {
		updated.AnswerDetail = &entity.AnswerDetail{
			Status:  entity.AnswerDetailStreaming,
			Content: "",
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ThreadResponseRepository().Upsert(ctx, updated); err != nil {
		s.logger.Error("AskService", "Failed to persist terminal response", map[string]interface{}{
			"query_id": queryId,
			"error":    err.Error(),
		})
	}

	s.threadCache.UpdateThreadCache(run.threadId, updated)
	s.notifyProgress(run, queryId, final)

	// Non-SQL outcomes trigger follow-up question generation so the user
	// is never left at a dead end.
	if task.Type == adapter.TaskTypeGeneral || task.Type == adapter.TaskTypeMisleadingQuery || final == process.StateFailed || final == process.StateNoResult {
		s.publishTerminal(ctx, run, queryId, task, final)
	}

	s.publishEvent(run, queryId, final)
	s.evictRunAfter(queryId)

	s.logger.Info("AskService", "Asking task finalized", map[string]interface{}{
		"query_id": queryId,
		"status":   string(final),
		"type":     string(task.Type),
	})
}

func (s *askService) publishTerminal(ctx context.Context, run *askRun, queryId string, task *adapter.AskingTask, final process.State) {
	msg := dto.AskTerminalMessage{
		ThreadId:   run.threadId,
		ResponseId: run.responseId,
		QueryId:    queryId,
		Question:   run.question,
		Status:     string(final),
		TaskType:   string(task.Type),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("AskService", "Failed to marshal terminal message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.logger.Error("AskService", "Failed to publish terminal message", map[string]interface{}{
			"query_id": queryId,
			"error":    err.Error(),
		})
	}
}

func (s *askService) publishEvent(run *askRun, queryId string, final process.State) {
	if s.eventPublisher == nil {
		return
	}
	eventType := events.TypeAskCompleted
	switch final {
	case process.StateFailed:
		eventType = events.TypeAskFailed
	case process.StateStopped:
		eventType = events.TypeAskStopped
	}
	evt := events.NewAskEvent(eventType, map[string]interface{}{
		"query_id":    queryId,
		"thread_id":   run.threadId,
		"response_id": run.responseId,
		"user_id":     run.userId,
		"status":      string(final),
		"question":    run.question,
	})
	if err := s.eventPublisher.Publish(context.Background(), evt); err != nil {
		s.logger.Warn("AskService", "Failed to publish ask event", map[string]interface{}{
			"query_id": queryId,
			"error":    err.Error(),
		})
	}
}

// evictRunAfter drops the run from the registry once the retention window
// passes, releasing its poller snapshot and streamed answer buffer. After
// eviction GetAskingTask reports the query id as unknown, which also ends
// any progress stream still attached to it.
func (s *askService) evictRunAfter(queryId string) {
	time.AfterFunc(s.runRetention, func() {
		s.mu.Lock()
		delete(s.runs, queryId)
		s.mu.Unlock()
	})
}

func (s *askService) notifyProgress(run *askRun, queryId string, state process.State) {
	if s.delivery == nil {
		return
	}
	s.delivery.Send(run.userId, "ask_progress", dto.AskProgressMessage{
		ThreadId:   run.threadId,
		ResponseId: run.responseId,
		QueryId:    queryId,
		Status:     string(state),
	})
}

// StopAsk cancels an in-flight asking task. Cancellation of the remote task
// is best effort; what matters is that local polling has ceased by the time
// this returns, so the caller can reset its view without a late tick
// clobbering it.
func (s *askService) StopAsk(ctx context.Context, request *dto.StopAskRequest) error {
	s.mu.RLock()
	run, ok := s.runs[request.QueryId]
	s.mu.RUnlock()
	if !ok {
		return serverutils.NewNotFoundError(fmt.Sprintf("no active asking task for query %s", request.QueryId))
	}

	if err := s.aiClient.CancelAsk(ctx, request.QueryId); err != nil {
		s.logger.Warn("AskService", "Remote cancel failed, stopping locally anyway", map[string]interface{}{
			"query_id": request.QueryId,
			"error":    err.Error(),
		})
	}

	run.poller.Stop()
	run.consumer.Reset()

	select {
	case <-run.poller.Done():
	case <-time.After(s.stopGracePeriod):
		s.logger.Warn("AskService", "Poller did not confirm stop within grace period", map[string]interface{}{
			"query_id": request.QueryId,
		})
	}

	stopped, _ := run.machine.TransitionTo(process.StateStopped)

	run.mu.Lock()
	alreadyFinal := run.finalized
	run.finalized = true
	run.mu.Unlock()

	if !alreadyFinal {
		updated := &entity.ThreadResponse{
			Id:        run.responseId,
			ThreadId:  run.threadId,
			QueryId:   request.QueryId,
			Question:  run.question,
			Status:    string(stopped),
			CreatedAt: run.createdAt,
		}
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.ThreadResponseRepository().Upsert(ctx, updated); err != nil {
			s.logger.Error("AskService", "Failed to persist stopped response", map[string]interface{}{
				"query_id": request.QueryId,
				"error":    err.Error(),
			})
		}
		s.threadCache.UpdateThreadCache(run.threadId, updated)
		s.notifyProgress(run, request.QueryId, stopped)
		s.publishEvent(run, request.QueryId, process.StateStopped)
		s.evictRunAfter(request.QueryId)
	}

	return nil
}

// GetAskingTask returns the latest polled snapshot for UI consumption.
func (s *askService) GetAskingTask(queryId string) (*dto.AskingTaskResponse, bool) {
	s.mu.RLock()
	run, ok := s.runs[queryId]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	snap := run.poller.Snapshot()
	resp := &dto.AskingTaskResponse{
		QueryId: queryId,
		Status:  string(run.machine.Current()),
	}
	if snap.Data != nil {
		task := snap.Data
		resp.Type = string(task.Type)
		resp.RephrasedQuestion = task.RephrasedQuestion
		resp.IntentReasoning = task.IntentReasoning
		for _, c := range task.Candidates {
			resp.Candidates = append(resp.Candidates, dto.CandidateDTO{Sql: c.Sql, Type: c.Type})
		}
		if task.Error != nil {
			resp.Error = &dto.TaskErrorDTO{
				Code:         task.Error.Code,
				Message:      task.Error.Message,
				ShortMessage: task.Error.ShortMessage,
			}
		}
		if run.machine.Current() == task.Status && task.Type == adapter.TaskTypeTextToSQL {
			resp.Status = string(process.Finalize(task.Status, len(task.Candidates)))
		}
	}
	return resp, true
}

// GetStreamingAnswer exposes the accumulated token stream for a general
// question. ok is false when no run exists for the query id.
func (s *askService) GetStreamingAnswer(queryId string) (string, bool, bool) {
	s.mu.RLock()
	run, ok := s.runs[queryId]
	s.mu.RUnlock()
	if !ok {
		return "", false, false
	}
	return run.consumer.Data(), run.consumer.Loading(), true
}

// ResolveQueryId maps a stable response id to the current remote task id.
func (s *askService) ResolveQueryId(ctx context.Context, responseId uuid.UUID) (string, error) {
	s.mu.RLock()
	for queryId, run := range s.runs {
		if run.responseId == responseId {
			s.mu.RUnlock()
			return queryId, nil
		}
	}
	s.mu.RUnlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	response, err := uow.ThreadResponseRepository().FindOne(ctx, specification.ByID{ID: responseId})
	if err != nil {
		return "", err
	}
	if response == nil {
		return "", serverutils.NewNotFoundError("response not found")
	}
	return response.QueryId, nil
}

// PersistAnswer stores the final streamed answer text exactly once per
// response, recording whether the stream completed or was cut short.
func (s *askService) PersistAnswer(ctx context.Context, responseId uuid.UUID, text string, status streaming.AnswerStatus) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	response, err := uow.ThreadResponseRepository().FindOne(ctx, specification.ByID{ID: responseId})
	if err != nil {
		return err
	}
	if response == nil {
		return serverutils.NewNotFoundError("response not found")
	}

	detailStatus := entity.AnswerDetailFinished
	if status == streaming.AnswerInterrupted {
		detailStatus = entity.AnswerDetailInterrupted
	}
	response.AnswerDetail = &entity.AnswerDetail{
		Status:  detailStatus,
		Content: text,
	}
	now := time.Now()
	response.UpdatedAt = &now

	if err := uow.ThreadResponseRepository().Update(ctx, response); err != nil {
		return err
	}
	s.threadCache.UpdateThreadCache(response.ThreadId, response)
	return nil
}
