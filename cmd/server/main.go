package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/cache"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/config"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/database"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/handler"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
	appLogger "github.com/Kellie-Brighty/plotmint-sub000/internal/logger"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/messaging"
	appMiddleware "github.com/Kellie-Brighty/plotmint-sub000/internal/middleware"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/service"
	"github.com/Kellie-Brighty/plotmint-sub000/migrations"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Plot Voting Engine...")

	// Загружаем конфиг ДО инициализации логгера
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger, err := appLogger.New(appLogger.Config{
		Level: cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer logger.Sync()
	logger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Подключение к PostgreSQL
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		logger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	logger.Info("Успешное подключение к PostgreSQL")

	// Применяем миграции
	migrator := database.NewMigrator(migrations.FS, dbPool, logger)
	if err := migrator.Up(context.Background()); err != nil {
		logger.Fatal("Ошибка применения миграций", zap.Error(err))
	}

	// Подключение к Redis (кеш срезов подсчета голосов)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	var tallyCache cache.TallyCache
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Кеш не критичен: работаем без него.
		logger.Warn("Redis недоступен, кеш срезов отключен", zap.Error(err))
		tallyCache = cache.NoopTallyCache{}
	} else {
		tallyCache = cache.NewRedisTallyCache(redisClient, cfg.TallyCacheTTL, logger)
		logger.Info("Успешное подключение к Redis")
	}

	// Подключение к RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	logger.Info("Успешное подключение к RabbitMQ")

	notificationPublisher, err := messaging.NewRabbitMQNotificationPublisher(rabbitConn, cfg.NotificationsQueueName)
	if err != nil {
		logger.Fatal("Не удалось создать NotificationPublisher", zap.Error(err))
	}

	// Клиенты реестра
	evmClient, err := ledger.DialEVMClient(cfg.EVMRPCEndpoint)
	if err != nil {
		logger.Fatal("Не удалось подключиться к EVM RPC", zap.Error(err))
	}
	defer evmClient.Close()
	logger.Info("Успешное подключение к EVM RPC")

	signingClient := ledger.NewHTTPSigningClient(cfg.SigningServiceURL, cfg.SigningServiceToken, cfg.LedgerTimeout, logger)
	indexerReader := ledger.NewHTTPIndexerReader(cfg.LedgerIndexerURL, cfg.LedgerTimeout, logger)
	tradeVerifier := ledger.NewEVMVerifier(evmClient, cfg.TradeConfirmations)

	// Инициализация зависимостей
	chapterRepo := repository.NewPgChapterRepository(logger)
	registrationRepo := repository.NewPgRegistrationRepository(logger)
	voteRepo := repository.NewPgVoteRepository(logger)
	winnerRepo := repository.NewPgWinnerRepository(logger)

	clock := service.NewClock()
	txManager := service.NewTxManager(dbPool)

	registrar := service.NewOptionRegistrar(dbPool, registrationRepo, signingClient, logger)
	tally := service.NewVoteTally(dbPool, txManager, voteRepo, registrationRepo, tradeVerifier, tallyCache, clock, logger)
	window := service.NewVotingWindow(dbPool, registrationRepo, clock, logger)
	resolver := service.NewWinnerResolver(dbPool, txManager, winnerRepo, registrationRepo, voteRepo, indexerReader, clock, logger)
	lifecycle := service.NewChapterLifecycle(dbPool, chapterRepo, registrar, tally, window, resolver, notificationPublisher, logger)

	votingHandler := handler.NewVotingHandler(lifecycle, tally, window, resolver, logger, cfg.JWTSecret)

	// Настройка Echo
	e := echo.New()
	e.Use(appMiddleware.EchoZapLogger(logger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	votingHandler.RegisterRoutes(e)

	log.Printf("Voting Engine слушает на порту %s", cfg.Port)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Ошибка запуска HTTP сервера: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Ошибка при graceful shutdown Echo: ", err)
	}

	log.Println("Plot Voting Engine успешно остановлен")
}

// setupDatabase инициализирует и возвращает пул соединений с БД.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := cfg.GetDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД (ping failed): %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ, повтор...",
			zap.Int("attempt", i+1),
			zap.Int("maxRetries", maxRetries),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, err)
}
