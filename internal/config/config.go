package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/utils"
)

// Config содержит конфигурацию движка голосования.
type Config struct {
	// Настройки сервера
	Port     string `envconfig:"VOTING_SERVER_PORT" default:"8084"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	// Настройки Redis (кеш срезов подсчета голосов)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	TallyCacheTTL time.Duration `envconfig:"TALLY_CACHE_TTL" default:"5s"`

	// Настройки RabbitMQ
	RabbitMQURL            string `envconfig:"RABBITMQ_URL" required:"true"`
	NotificationsQueueName string `envconfig:"NOTIFICATIONS_QUEUE_NAME" default:"plot_notifications"`

	// Настройки внешних возможностей реестра
	SigningServiceURL  string        `envconfig:"SIGNING_SERVICE_URL" required:"true"`
	LedgerIndexerURL   string        `envconfig:"LEDGER_INDEXER_URL" required:"true"`
	EVMRPCEndpoint     string        `envconfig:"EVM_RPC_ENDPOINT" required:"true"`
	LedgerTimeout      time.Duration `envconfig:"LEDGER_TIMEOUT" default:"30s"`
	TradeConfirmations uint64        `envconfig:"TRADE_CONFIRMATIONS" default:"1"`

	// Секретные поля БЕЗ envconfig тегов
	JWTSecret           string
	SigningServiceToken string
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	// Загружаем НЕсекретные переменные
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации voting-engine: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.SigningServiceToken, loadErr = utils.ReadSecret("signing_service_token")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Конфигурация Voting Engine загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis: %s (db %d, tally TTL %v)", cfg.RedisAddr, cfg.RedisDB, cfg.TallyCacheTTL)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Notifications Queue: %s", cfg.NotificationsQueueName)
	log.Printf("  Signing Service: %s", cfg.SigningServiceURL)
	log.Printf("  Ledger Indexer: %s", cfg.LedgerIndexerURL)
	log.Printf("  EVM RPC: %s", cfg.EVMRPCEndpoint)
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}
