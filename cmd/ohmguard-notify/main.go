package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ohmguard-notify/internal/config"
	"ohmguard-notify/internal/consumer"
	"ohmguard-notify/internal/database"
	httpapi "ohmguard-notify/internal/http"
	"ohmguard-notify/internal/location"
	"ohmguard-notify/internal/logger"
	"ohmguard-notify/internal/mqtt"
	"ohmguard-notify/internal/push"
	"ohmguard-notify/internal/realtime"
	"ohmguard-notify/internal/rediscache"
	"ohmguard-notify/internal/repository"
	"ohmguard-notify/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "ohmguard-notify")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// 4. Redis（位置节点缓存；连不上只降级，不阻止启动）
	redisClient := rediscache.NewRedisClient(&cfg.Redis)
	defer rediscache.Close(redisClient)

	var nodeCache *location.NodeCache
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rediscache.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, node cache disabled", zap.Error(err))
		} else {
			nodeCache = location.NewNodeCache(
				redisClient,
				cfg.Location.CacheKeyPrefix,
				time.Duration(cfg.Location.CacheTTL)*time.Second,
				log,
			)
		}
		cancel()
	}

	// 5. 仓库层
	eventsRepo := repository.NewEventsRepository(db, log)
	sensorsRepo := repository.NewSensorsRepository(db, log)
	tokensRepo := repository.NewPushTokensRepository(db, log)

	// 6. 位置解析 / 推送 / 实时广播
	resolver := location.NewResolver(sensorsRepo, nodeCache, log)

	dispatcher := push.NewDispatcher(
		cfg.Push.GatewayURL,
		time.Duration(cfg.Push.TimeoutSec)*time.Second,
		cfg.Push.ChannelID,
		log,
	)

	rooms := realtime.NewRoomManager(log)
	broadcaster := realtime.NewBroadcaster(rooms, log)

	// 7. 服务层
	eventService := service.NewEventService(eventsRepo, sensorsRepo, resolver, log)
	notifyService := service.NewNotificationService(
		eventsRepo, sensorsRepo, tokensRepo, resolver, dispatcher, broadcaster, log,
	)
	tokenService := service.NewTokenService(tokensRepo, dispatcher, log)

	// 8. MQTT 检测接入（可选：未配置 Broker 时跳过）
	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		detectionConsumer := consumer.NewDetectionConsumer(
			mqttClient, notifyService, cfg.MQTT.Topic, cfg.MQTT.QoS, log,
		)
		if err := detectionConsumer.Start(); err != nil {
			log.Fatal("Failed to start detection consumer", zap.Error(err))
		}
	} else {
		log.Info("MQTT broker not configured, detection intake disabled")
	}

	// 9. HTTP 路由
	router := httpapi.NewRouter(log)
	router.RegisterNotifyRoutes(
		httpapi.NewEventHandler(eventService, notifyService, log),
		httpapi.NewPushTokenHandler(tokenService, log),
		httpapi.NewNotifyHandler(notifyService, tokenService, log),
		realtime.NewWSHandler(broadcaster, log),
	)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// 10. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrChan:
		log.Fatal("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Notification service stopped")
}
