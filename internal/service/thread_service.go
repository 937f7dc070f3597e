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

	"github.com/google/uuid"
)

type IThreadService interface {
	CreateThread(ctx context.Context, userId, projectId uuid.UUID, request *dto.CreateThreadRequest) (*dto.CreateThreadResponse, error)
	GetAllThreads(ctx context.Context, userId uuid.UUID) ([]dto.GetAllThreadsResponse, error)
	GetThread(ctx context.Context, userId, threadId uuid.UUID) (*dto.GetThreadResponse, error)
	DeleteThread(ctx context.Context, userId, threadId uuid.UUID) error
	GetRecommendedQuestions(ctx context.Context, userId, threadId uuid.UUID) (*dto.RecommendedQuestionsResponse, error)
}

type threadService struct {
	uowFactory  unitofwork.RepositoryFactory
	threadCache *memory.ThreadCacheRepository
	logger      logger.ILogger
}

func NewThreadService(
	uowFactory unitofwork.RepositoryFactory,
	threadCache *memory.ThreadCacheRepository,
	log logger.ILogger,
) IThreadService {
	return &threadService{
		uowFactory:  uowFactory,
		threadCache: threadCache,
		logger:      log,
	}
}

func (s *threadService) CreateThread(ctx context.Context, userId, projectId uuid.UUID, request *dto.CreateThreadRequest) (*dto.CreateThreadResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread := &entity.Thread{
		Id:        uuid.New(),
		ProjectId: projectId,
		UserId:    userId,
		Summary:   request.Summary,
		CreatedAt: time.Now(),
	}
	if err := uow.ThreadRepository().Create(ctx, thread); err != nil {
		return nil, err
	}

	return &dto.CreateThreadResponse{Id: thread.Id}, nil
}

func (s *threadService) GetAllThreads(ctx context.Context, userId uuid.UUID) ([]dto.GetAllThreadsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	threads, err := uow.ThreadRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]dto.GetAllThreadsResponse, 0, len(threads))
	for _, t := range threads {
		result = append(result, dto.GetAllThreadsResponse{
			Id:        t.Id,
			Summary:   t.Summary,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return result, nil
}

// GetThread returns the thread with its responses. A mounted cache projection
// wins over storage: it carries optimistic entries for tasks still running.
func (s *threadService) GetThread(ctx context.Context, userId, threadId uuid.UUID) (*dto.GetThreadResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, serverutils.NewNotFoundError("thread not found")
	}

	var responses []*entity.ThreadResponse
	if cached, found := s.threadCache.Get(threadId); found {
		responses = cached.Responses
	} else {
		responses, err = uow.ThreadResponseRepository().FindAll(ctx,
			specification.ByThreadID{ThreadID: threadId},
			specification.OrderBy{Field: "created_at"},
		)
		if err != nil {
			return nil, err
		}
		s.threadCache.Save(&memory.CachedThread{Id: threadId, Responses: responses})
	}

	result := &dto.GetThreadResponse{
		Id:        thread.Id,
		Summary:   thread.Summary,
		CreatedAt: thread.CreatedAt,
	}
	for _, r := range responses {
		result.Responses = append(result.Responses, toThreadResponseDTO(r))
	}
	for _, q := range thread.RecommendedQuestions {
		result.RecommendedQuestions = append(result.RecommendedQuestions, dto.RecommendedQuestionDTO{
			Question: q.Question,
			Category: q.Category,
			Sql:      q.Sql,
		})
	}
	return result, nil
}

func (s *threadService) DeleteThread(ctx context.Context, userId, threadId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if thread == nil {
		return serverutils.NewNotFoundError("thread not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ThreadResponseRepository().DeleteByThreadId(ctx, threadId); err != nil {
		return err
	}
	if err := uow.ThreadRepository().Delete(ctx, threadId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.threadCache.Delete(threadId)
	return nil
}

func (s *threadService) GetRecommendedQuestions(ctx context.Context, userId, threadId uuid.UUID) (*dto.RecommendedQuestionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, serverutils.NewNotFoundError("thread not found")
	}

	result := &dto.RecommendedQuestionsResponse{
		Status:    "FINISHED",
		Questions: []dto.RecommendedQuestionDTO{},
	}
	if len(thread.RecommendedQuestions) == 0 {
		result.Status = "GENERATING"
	}
	for _, q := range thread.RecommendedQuestions {
		result.Questions = append(result.Questions, dto.RecommendedQuestionDTO{
			Question: q.Question,
			Category: q.Category,
			Sql:      q.Sql,
		})
	}
	return result, nil
}

func toThreadResponseDTO(r *entity.ThreadResponse) dto.ThreadResponseDTO {
	item := dto.ThreadResponseDTO{
		Id:        r.Id,
		QueryId:   r.QueryId,
		Question:  r.Question,
		Sql:       r.Sql,
		Status:    r.Status,
		TaskType:  r.TaskType,
		Breakdown: r.BreakdownDetail,
		Chart:     r.ChartDetail,
		CreatedAt: r.CreatedAt,
	}
	if r.Error != nil {
		item.Error = &dto.TaskErrorDTO{
			Code:         r.Error.Code,
			Message:      r.Error.Message,
			ShortMessage: r.Error.ShortMessage,
		}
	}
	if r.AnswerDetail != nil {
		item.Answer = &dto.AnswerDetailDTO{
			Status:  r.AnswerDetail.Status,
			Content: r.AnswerDetail.Content,
		}
	}
	return item
}
