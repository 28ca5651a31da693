package bootstrap

import (
	"context"
	"log"

	"taskhub-be/internal/config"
	"taskhub-be/internal/handler"
	"taskhub-be/internal/pkg/logger"
	"taskhub-be/internal/realtime"
	"taskhub-be/internal/repository/contract"
	"taskhub-be/internal/repository/implementation"
	"taskhub-be/internal/repository/memory"
	"taskhub-be/internal/service"
	internalWS "taskhub-be/internal/websocket"

	pktNats "taskhub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const reminderTopic = "task_deadline_reminders"

type Container struct {
	// Handlers
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler

	// Background Services (Exposed for main.go to run)
	ReminderService service.IReminderService

	// WebSockets
	WebSocketHub *internalWS.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)

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
	redisHealthy := true
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Presence and backplane degrade to single-instance mode", err)
		redisHealthy = false
	}

	// Presence: Redis-backed when available, in-process otherwise. The
	// in-process store honors the same TTLs but is invisible to other
	// instances.
	var presenceStore contract.PresenceStore
	var hubRedis *redis.Client
	if redisHealthy {
		presenceStore = service.NewPresenceService(rdb, cfg.Presence.OnlineTTL, cfg.Presence.TypingTTL)
		hubRedis = rdb
	} else {
		presenceStore = memory.NewPresenceRepository(cfg.Presence.OnlineTTL, cfg.Presence.TypingTTL)
	}

	// WebSocket Hub
	wsHub := internalWS.NewHub(hubRedis, wsLogger)
	go wsHub.Run()

	// 3. Chat Domain
	chatRepo := implementation.NewChatRepository(db)
	chatService := service.NewChatService(chatRepo)

	gateway := internalWS.NewGateway(wsHub, chatService, presenceStore, wsLogger)
	chatHandler := handler.NewChatHandler(chatService, presenceStore, gateway, cfg.Auth.JWTSecret, wsLogger)

	// Late-bound so services can push without importing the gateway.
	realtime.SetPublisher(internalWS.NewHubPublisher(wsHub))

	// 4. Notification Domain
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, natsSub, wsLogger)

	// Start Service (Worker)
	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(notifService, natsPub, wsLogger)

	// 5. Deadline Reminder Pipeline
	reminderSource := implementation.NewTaskDeadlineRepository(db)
	reminderService := service.NewReminderService(
		pubSub,
		reminderTopic,
		reminderSource,
		notifService,
		cfg.Reminder.ScanInterval,
		cfg.Reminder.DeadlineAhead,
		sysLogger,
	)

	return &Container{
		ChatHandler:         chatHandler,
		NotificationHandler: notifHandler,
		ReminderService:     reminderService,
		WebSocketHub:        wsHub,
	}
}
