package bootstrap

import (
	"context"
	"log"

	"ai-askdata-be/internal/config"
	"ai-askdata-be/internal/controller"
	"ai-askdata-be/internal/handler"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/repository/memory"
	"ai-askdata-be/internal/repository/unitofwork"
	"ai-askdata-be/internal/service"
	"ai-askdata-be/internal/websocket"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/streaming"

	pktNats "ai-askdata-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ThreadController     controller.IThreadController
	AskController        controller.IAskController
	AdjustmentController controller.IAdjustmentController
	ApiController        controller.IApiController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	aiClient := adapter.NewClient(cfg.Adapter.BaseURL, sysLogger)
	threadCache := memory.NewThreadCacheRepository()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	publisherService := service.NewPublisherService(cfg.App.AskTerminalTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.AskTerminalTopic,
		uowFactory,
		aiClient,
		wsHub,
		sysLogger,
		cfg.Ask.PollInterval,
	)

	askService := service.NewAskService(
		uowFactory,
		aiClient,
		threadCache,
		publisherService,
		natsPub,
		wsHub,
		sysLogger,
		cfg.Ask.PollInterval,
		cfg.Ask.StopGracePeriod,
	)
	adjustmentService := service.NewAdjustmentService(
		uowFactory,
		aiClient,
		threadCache,
		sysLogger,
		cfg.Ask.PollInterval,
	)
	apiService := service.NewApiService(
		uowFactory,
		aiClient,
		sysLogger,
		cfg.Ask.PollInterval,
		cfg.Ask.GenerateDeadline,
	)
	threadService := service.NewThreadService(uowFactory, threadCache, sysLogger)

	// The ask service persists finished and interrupted answers, so it backs
	// the stream accumulator.
	accumulator := streaming.NewAccumulator(askService, sysLogger)

	// 3.5 Notification System
	notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}
	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,

		ThreadController:     controller.NewThreadController(threadService),
		AskController:        controller.NewAskController(askService, aiClient, accumulator, sysLogger, cfg.Ask.PollInterval),
		AdjustmentController: controller.NewAdjustmentController(adjustmentService),
		ApiController:        controller.NewApiController(apiService, sysLogger),

		ConsumerService: consumerService,
	}
}
