package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-askdata-be/internal/constant"
	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/repository/specification"
	"ai-askdata-be/internal/repository/unitofwork"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/poller"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService generates follow-up questions for threads whose asking
// task ended without SQL. It runs off the in-process bus so the ask flow
// never waits on it.
type consumerService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	uowFactory   unitofwork.RepositoryFactory
	aiClient     *adapter.Client
	delivery     ProgressDelivery
	logger       logger.ILogger
	pollInterval time.Duration
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	aiClient *adapter.Client,
	delivery ProgressDelivery,
	log logger.ILogger,
	pollInterval time.Duration,
) IConsumerService {
	return &consumerService{
		pubSub:       pubSub,
		topicName:    topicName,
		uowFactory:   uowFactory,
		aiClient:     aiClient,
		delivery:     delivery,
		logger:       log,
		pollInterval: pollInterval,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.AskTerminalMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal terminal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("ConsumerService", "Generating recommended questions", map[string]interface{}{
		"thread_id": payload.ThreadId,
		"query_id":  payload.QueryId,
	})

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx, specification.ByID{ID: payload.ThreadId})
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to load thread", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	if thread == nil {
		// Thread deleted while the message was in flight.
		msg.Ack()
		return
	}

	seeds, err := cs.seedQuestions(ctx, uow, payload)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to collect seed questions", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	taskId, err := cs.aiClient.SubmitRecommendedQuestions(ctx, &adapter.SubmitRecommendedQuestionsRequest{
		Questions: seeds,
	})
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to submit recommended questions", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	task, err := poller.PollUntil(ctx,
		func(ctx context.Context) (*adapter.RecommendedQuestionsTask, error) {
			return cs.aiClient.GetRecommendedQuestionsResult(ctx, taskId)
		},
		cs.pollInterval,
		2*time.Minute,
		func(t *adapter.RecommendedQuestionsTask) bool {
			return t != nil && t.Status != adapter.RecommendedStatusGenerating
		},
	)
	if err != nil {
		if errors.Is(err, poller.ErrPollingTimeout) {
			cs.logger.Warn("ConsumerService", "Recommended questions generation timed out", map[string]interface{}{"task_id": taskId})
			msg.Ack() // A timeout will not resolve on redelivery.
			return
		}
		msg.Nack()
		return
	}
	if task.Status == adapter.RecommendedStatusFailed {
		cs.logger.Warn("ConsumerService", "Recommended questions generation failed", map[string]interface{}{
			"task_id": taskId,
			"error":   task.Error,
		})
		msg.Ack()
		return
	}

	items := make([]entity.RecommendedQuestionItem, 0, len(task.Questions))
	for _, q := range task.Questions {
		items = append(items, entity.RecommendedQuestionItem{
			Question: q.Question,
			Category: q.Category,
			Sql:      q.Sql,
		})
	}
	thread.RecommendedQuestions = items
	now := time.Now()
	thread.UpdatedAt = &now

	if err := uow.ThreadRepository().Update(ctx, thread); err != nil {
		cs.logger.Error("ConsumerService", "Failed to persist recommended questions", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	if cs.delivery != nil {
		questions := make([]dto.RecommendedQuestionDTO, 0, len(items))
		for _, q := range items {
			questions = append(questions, dto.RecommendedQuestionDTO{
				Question: q.Question,
				Category: q.Category,
				Sql:      q.Sql,
			})
		}
		cs.delivery.Send(thread.UserId, "recommended_questions", dto.RecommendedQuestionsResponse{
			Status:    adapter.RecommendedStatusFinished,
			Questions: questions,
		})
	}

	cs.logger.Info("ConsumerService", "Recommended questions stored", map[string]interface{}{
		"thread_id": payload.ThreadId,
		"count":     len(items),
	})
	msg.Ack()
}

// seedQuestions builds the generation seed: the last distinct prior questions
// of the thread, newest first, capped, plus the question that triggered the
// fan-out.
func (cs *consumerService) seedQuestions(ctx context.Context, uow unitofwork.UnitOfWork, payload dto.AskTerminalMessage) ([]string, error) {
	responses, err := uow.ThreadResponseRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: payload.ThreadId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{payload.Question: true}
	seeds := []string{}
	for _, r := range responses {
		if len(seeds) >= constant.RecommendSeedQuestions {
			break
		}
		if r.Question == "" || seen[r.Question] {
			continue
		}
		seen[r.Question] = true
		seeds = append(seeds, r.Question)
	}
	seeds = append(seeds, payload.Question)
	return seeds, nil
}
