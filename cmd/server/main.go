package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"route-traffic-go/internal/client"
	"route-traffic-go/internal/config"
	"route-traffic-go/internal/database"
	"route-traffic-go/internal/events"
	"route-traffic-go/internal/handler"
	"route-traffic-go/internal/health"
	"route-traffic-go/internal/repository"
	"route-traffic-go/internal/service"
	"route-traffic-go/internal/traffic"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Route Traffic API Server")

	// Получаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Ошибка конфигурации: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Неизвестный уровень логирования %q, используем info", cfg.Logging.Level)
	}

	healthServer := health.NewServer(logger)

	// История маршрутов в PostgreSQL включается отдельно
	var db *gorm.DB
	var routeRepo repository.RouteRepository
	if cfg.History.Enabled {
		db = connectDatabase(cfg, logger)
		routeRepo = repository.NewRouteRepository(db)
		healthServer.AddChecker("database", func() error { return database.HealthCheck(db) })
	} else {
		logger.Info("История маршрутов отключена")
	}

	// Издатель событий
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Infof("События публикуются в Kafka, топик %s", cfg.Kafka.Topic)
	}

	// Инициализируем клиенты и сервисы
	mapsClient := client.NewGoogleMapsClient(
		cfg.Maps.BaseURL,
		cfg.Maps.APIKey,
		time.Duration(cfg.Maps.Timeout)*time.Second,
		logger,
	)

	seed := cfg.Session.TrafficSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	segmenter := traffic.NewSeededSegmenter(seed)

	routeService := service.NewRouteService(routeRepo, logger)
	sessionService := service.NewSessionService(
		mapsClient,
		mapsClient,
		segmenter,
		routeService,
		publisher,
		logger,
		service.SessionOptions{
			AutoRouteDelay: time.Duration(cfg.Session.AutoRouteDelayMs) * time.Millisecond,
			TrafficModel:   cfg.Maps.TrafficModel,
		},
	)

	// Инициализируем обработчики
	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	historyHandler := handler.NewHistoryHandler(routeService, sessionService, healthServer, logger)

	// Настраиваем Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	// Регистрируем маршруты
	sessionHandler.RegisterRoutes(router)
	historyHandler.RegisterRoutes(router)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Route Traffic API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Сервер запущен на %s", srv.Addr)
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	go func() {
		grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
		if err := healthServer.Serve(grpcAddr, healthCheckInterval); err != nil {
			logger.Errorf("Ошибка gRPC health сервера: %v", err)
		}
	}()

	// Ждем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Infof("Получен сигнал %s, останавливаем сервер", sig)

	healthServer.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}
	healthServer.Stop()
	sessionService.Close()

	if err := publisher.Close(); err != nil {
		logger.Errorf("Ошибка закрытия издателя событий: %v", err)
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			logger.Errorf("Ошибка закрытия соединения с БД: %v", err)
		}
	}

	logger.Info("Сервер остановлен")
}

// connectDatabase подключается к БД, выполняет миграции и проверяет соединение
func connectDatabase(cfg *config.Config, logger *logrus.Logger) *gorm.DB {
	logger.Info("Подключение к базе данных...")
	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}, logger)
	if err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	if err := database.Migrate(db, logger); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	if err := database.HealthCheck(db); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}

	logger.Info("База данных успешно подключена и готова к работе")
	return db
}

// corsMiddleware настраивает CORS для клиентского приложения с картой
func corsMiddleware(origins []string) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}

	return cors.New(corsConfig)
}
