package service

import (
	"context"
	"fmt"
	"strings"

	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/pkg/events"
	pktNats "ai-askdata-be/pkg/nats"

	"github.com/google/uuid"
)

// NotificationPayload is the websocket-facing shape of one notification.
type NotificationPayload struct {
	Id      uuid.UUID              `json:"id"`
	Type    string                 `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type NotificationService struct {
	subscriber *pktNats.Subscriber
	delivery   ProgressDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery ProgressDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	// Strip "events." prefix from type if present (NATS subject includes stream name)
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	userIDStr, _ := payload["user_id"].(string)
	if userIDStr == "" {
		if raw, ok := payload["user_id"].(uuid.UUID); ok {
			userIDStr = raw.String()
		}
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Event without a routable user id", map[string]interface{}{"type": typeCode})
		return nil
	}

	question, _ := payload["question"].(string)
	notif := NotificationPayload{
		Id:   uuid.New(),
		Type: typeCode,
		Data: payload,
	}

	switch typeCode {
	case events.TypeAskCompleted:
		notif.Title = "Answer ready"
		notif.Message = fmt.Sprintf("Your question %q has been answered.", question)
	case events.TypeAskFailed:
		notif.Title = "Question failed"
		notif.Message = fmt.Sprintf("We could not answer %q.", question)
	case events.TypeAskStopped:
		notif.Title = "Question stopped"
		notif.Message = fmt.Sprintf("Processing of %q was stopped.", question)
	default:
		// Unknown event types are dropped rather than surfaced half-baked.
		return nil
	}

	if s.delivery != nil {
		s.delivery.Send(userID, "notification", notif)
	}
	return nil
}
