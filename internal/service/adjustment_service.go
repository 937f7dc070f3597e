package service

import (
	"context"
	"time"

	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/repository/memory"
	"ai-askdata-be/internal/repository/specification"
	"ai-askdata-be/internal/repository/unitofwork"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/poller"
	"ai-askdata-be/pkg/process"

	"github.com/google/uuid"
)

type IAdjustmentService interface {
	AdjustSQL(ctx context.Context, userId uuid.UUID, request *dto.AdjustSQLRequest) (*dto.AdjustmentResponse, error)
	AdjustReasoningSteps(ctx context.Context, userId uuid.UUID, request *dto.AdjustReasoningRequest) (*dto.AdjustmentResponse, error)
	ReRun(ctx context.Context, userId uuid.UUID, request *dto.ReRunRequest) (*dto.AdjustmentResponse, error)
}

type adjustmentService struct {
	uowFactory  unitofwork.RepositoryFactory
	aiClient    *adapter.Client
	threadCache *memory.ThreadCacheRepository
	logger      logger.ILogger

	pollInterval time.Duration
}

func NewAdjustmentService(
	uowFactory unitofwork.RepositoryFactory,
	aiClient *adapter.Client,
	threadCache *memory.ThreadCacheRepository,
	log logger.ILogger,
	pollInterval time.Duration,
) IAdjustmentService {
	return &adjustmentService{
		uowFactory:   uowFactory,
		aiClient:     aiClient,
		threadCache:  threadCache,
		logger:       log,
		pollInterval: pollInterval,
	}
}

func (s *adjustmentService) loadOwnedResponse(ctx context.Context, userId, responseId uuid.UUID) (*entity.ThreadResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	response, err := uow.ThreadResponseRepository().FindOne(ctx, specification.ByID{ID: responseId})
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, serverutils.NewNotFoundError("response not found")
	}

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: response.ThreadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, serverutils.NewNotFoundError("thread not found")
	}
	return response, nil
}

// AdjustSQL replaces a response's SQL directly. No generation runs, so the
// result is applied synchronously: persist, then reconcile the projection.
func (s *adjustmentService) AdjustSQL(ctx context.Context, userId uuid.UUID, request *dto.AdjustSQLRequest) (*dto.AdjustmentResponse, error) {
	response, err := s.loadOwnedResponse(ctx, userId, request.ResponseId)
	if err != nil {
		return nil, err
	}

	adjusted, err := s.aiClient.AdjustSQL(ctx, &adapter.AdjustSQLRequest{
		ResponseId: request.ResponseId.String(),
		Sql:        request.Sql,
	})
	if err != nil {
		return nil, err
	}

	response.Sql = adjusted.Sql
	response.Status = string(process.StateFinished)
	response.Error = nil
	now := time.Now()
	response.UpdatedAt = &now

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ThreadResponseRepository().Update(ctx, response); err != nil {
		return nil, err
	}
	s.threadCache.UpdateThreadCache(response.ThreadId, response)

	return &dto.AdjustmentResponse{
		ResponseId: response.Id,
		QueryId:    response.QueryId,
		Status:     response.Status,
		Sql:        response.Sql,
	}, nil
}

// AdjustReasoningSteps submits a reasoning revision, which spawns a fresh
// remote task under a new query id. The response keeps its stable id; the
// new query id is adopted and generation is tracked in the background.
func (s *adjustmentService) AdjustReasoningSteps(ctx context.Context, userId uuid.UUID, request *dto.AdjustReasoningRequest) (*dto.AdjustmentResponse, error) {
	response, err := s.loadOwnedResponse(ctx, userId, request.ResponseId)
	if err != nil {
		return nil, err
	}

	queryId, err := s.aiClient.AdjustReasoning(ctx, &adapter.AdjustReasoningRequest{
		ResponseId: request.ResponseId.String(),
		Steps:      request.Steps,
	})
	if err != nil {
		return nil, err
	}

	response.QueryId = queryId
	response.Status = string(process.StateUnderstanding)
	response.Error = nil
	now := time.Now()
	response.UpdatedAt = &now

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ThreadResponseRepository().Update(ctx, response); err != nil {
		return nil, err
	}
	s.threadCache.UpdateThreadCache(response.ThreadId, response)

	s.trackAdjustment(response, func(ctx context.Context) (*adapter.ResponseProgress, error) {
		task, err := s.aiClient.GetAskResult(ctx, queryId)
		if err != nil {
			return nil, err
		}
		progress := &adapter.ResponseProgress{
			ResponseId: response.Id.String(),
			QueryId:    queryId,
			Status:     task.Status,
			Error:      task.Error,
		}
		if len(task.Candidates) > 0 {
			progress.Sql = task.Candidates[0].Sql
		}
		return progress, nil
	})

	return &dto.AdjustmentResponse{
		ResponseId: response.Id,
		QueryId:    queryId,
		Status:     response.Status,
	}, nil
}

// ReRun regenerates a response in place. Progress is reported through the
// response resource itself rather than a detached task object.
func (s *adjustmentService) ReRun(ctx context.Context, userId uuid.UUID, request *dto.ReRunRequest) (*dto.AdjustmentResponse, error) {
	response, err := s.loadOwnedResponse(ctx, userId, request.ResponseId)
	if err != nil {
		return nil, err
	}

	if err := s.aiClient.ReRunResponse(ctx, request.ResponseId.String()); err != nil {
		return nil, err
	}

	response.Status = string(process.StateUnderstanding)
	response.Error = nil
	now := time.Now()
	response.UpdatedAt = &now

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ThreadResponseRepository().Update(ctx, response); err != nil {
		return nil, err
	}
	s.threadCache.UpdateThreadCache(response.ThreadId, response)

	s.trackAdjustment(response, func(ctx context.Context) (*adapter.ResponseProgress, error) {
		return s.aiClient.GetResponseProgress(ctx, response.Id.String())
	})

	return &dto.AdjustmentResponse{
		ResponseId: response.Id,
		QueryId:    response.QueryId,
		Status:     response.Status,
	}, nil
}

// trackAdjustment polls generation progress in the background and reconciles
// each observed change into storage and the thread projection, keyed by the
// stable response id. A permissive machine absorbs stage skips in the poll
// stream.
func (s *adjustmentService) trackAdjustment(response *entity.ThreadResponse, fetch poller.FetchFunc[*adapter.ResponseProgress]) {
	machine := process.NewMachine(process.Permissive, s.logger)
	if _, err := machine.TransitionTo(process.StateUnderstanding); err != nil {
		s.logger.Error("AdjustmentService", "Failed to arm tracking machine", map[string]interface{}{"error": err.Error()})
		return
	}

	responseId := response.Id
	threadId := response.ThreadId
	question := response.Question
	createdAt := response.CreatedAt

	p := poller.New(fetch, s.pollInterval)
	p.OnTick(func(snap poller.Snapshot[*adapter.ResponseProgress]) {
		if snap.Err != nil {
			s.logger.Warn("AdjustmentService", "Progress poll failed", map[string]interface{}{
				"response_id": responseId,
				"error":       snap.Err.Error(),
			})
			return
		}
		progress := snap.Data
		if progress == nil {
			return
		}

		current, _ := machine.TransitionTo(progress.Status)

		updated := &entity.ThreadResponse{
			Id:        responseId,
			ThreadId:  threadId,
			QueryId:   progress.QueryId,
			Question:  question,
			Sql:       progress.Sql,
			Status:    string(current),
			CreatedAt: createdAt,
		}
		if updated.QueryId == "" {
			updated.QueryId = response.QueryId
		}
		if progress.Error != nil {
			updated.Error = &entity.ResponseError{
				Code:         progress.Error.Code,
				Message:      progress.Error.Message,
				ShortMessage: progress.Error.ShortMessage,
			}
		}

		s.threadCache.UpdateThreadCache(threadId, updated)

		if current.IsTerminal() {
			p.Stop()
			ctx := context.Background()
			uow := s.uowFactory.NewUnitOfWork(ctx)
			if err := uow.ThreadResponseRepository().Upsert(ctx, updated); err != nil {
				s.logger.Error("AdjustmentService", "Failed to persist adjusted response", map[string]interface{}{
					"response_id": responseId,
					"error":       err.Error(),
				})
			}
		}
	})
	p.Start(context.Background())
}
