package server

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/c42705/stargety-oasis-sub008/config"
	"github.com/c42705/stargety-oasis-sub008/handlers"
	"github.com/c42705/stargety-oasis-sub008/kafka"
	"github.com/c42705/stargety-oasis-sub008/limiter"
	custommiddleware "github.com/c42705/stargety-oasis-sub008/middleware"
	"github.com/c42705/stargety-oasis-sub008/models"
	oasisredis "github.com/c42705/stargety-oasis-sub008/redis"
	"github.com/c42705/stargety-oasis-sub008/services"
)

type Server struct {
	Echo   *echo.Echo
	DB     *gorm.DB
	Config *config.Config

	Redis    *oasisredis.RedisClient
	Producer *kafka.Producer
	Consumer *kafka.Consumer

	Hub              *handlers.Hub
	AuthHandler      *handlers.AuthHandler
	CharacterHandler *handlers.CharacterHandler
	SnapshotHandler  *handlers.SnapshotHandler
	WSHandler        *handlers.WSHandler

	Cleanup *services.CleanupRunner
}

func NewServer(cfg config.Config) (*Server, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrateAll(db); err != nil {
		return nil, err
	}

	// Redis 可选：连不上只降级，不阻止启动
	var redisClient *oasisredis.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = oasisredis.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Printf("Redis unavailable, presence mirror disabled: %v", err)
			redisClient = nil
		}
	}

	// Kafka 可选：事件流关掉时聊天仍然直接持久化
	var producer *kafka.Producer
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		saramaCfg, err := kafka.NewSaramaConfig(&cfg.Kafka)
		if err != nil {
			return nil, err
		}
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, saramaCfg)
		if err != nil {
			log.Printf("Kafka producer unavailable, event stream disabled: %v", err)
			producer = nil
		} else {
			handler := kafka.NewRoomEventHandler(redisClient)
			consumer, err = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID,
				[]string{cfg.Kafka.Topic}, saramaCfg, handler)
			if err != nil {
				log.Printf("Kafka consumer unavailable: %v", err)
				consumer = nil
			}
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	authService := services.NewAuthService(db, &cfg.Auth)
	chatService := services.NewChatService(db, &cfg.Chat)
	characterService := services.NewCharacterService(db)
	worldService := services.NewWorldService(db)
	settingsService := services.NewSettingsService(db)

	var rateLimiter *limiter.Manager
	if redisClient != nil {
		rateLimiter = limiter.NewManager(redisClient.Client, &limiter.FixedWindowStrategy{})
	}

	hub := handlers.NewHub()
	chatCtrl := handlers.NewChatController(hub, chatService, redisClient, producer, rateLimiter, &cfg.Chat)
	worldCtrl := handlers.NewWorldController(hub, chatService, characterService, worldService, cfg.World)
	callCtrl := handlers.NewCallController(hub, chatService, producer)

	s := &Server{
		Echo:             e,
		DB:               db,
		Config:           &cfg,
		Redis:            redisClient,
		Producer:         producer,
		Consumer:         consumer,
		Hub:              hub,
		AuthHandler:      handlers.NewAuthHandler(authService),
		CharacterHandler: handlers.NewCharacterHandler(characterService, settingsService),
		SnapshotHandler:  handlers.NewSnapshotHandler(chatService, chatCtrl, worldCtrl, callCtrl),
		WSHandler:        handlers.NewWSHandler(hub, chatCtrl, worldCtrl, callCtrl),
		Cleanup: services.NewCleanupRunner(chatService, worldService,
			time.Duration(cfg.Chat.CleanupInterval)*time.Minute),
	}

	s.SetupRoutes(custommiddleware.AuthMiddleware(authService))
	return s, nil
}

// Start 启动后台任务和 HTTP 服务，阻塞到服务退出
func (s *Server) Start(ctx context.Context) error {
	go s.Cleanup.Run(ctx)

	if s.Consumer != nil {
		go func() {
			if err := s.Consumer.Start(ctx); err != nil {
				log.Printf("Kafka consumer stopped: %v", err)
			}
		}()
	}

	return s.Echo.Start(s.Config.Server.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)

	if s.Consumer != nil {
		s.Consumer.Close()
	}
	if s.Producer != nil {
		s.Producer.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if sqlDB, dbErr := s.DB.DB(); dbErr == nil {
		sqlDB.Close()
	}
	return err
}
