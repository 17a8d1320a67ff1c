package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companyledger/internal/ledger/controller"
	gorm "github.com/gartstein/companyledger/internal/ledger/db"
	"github.com/gartstein/companyledger/internal/ledger/events"
	"github.com/gartstein/companyledger/internal/ledger/funds"
	"github.com/gartstein/companyledger/internal/ledger/handlers"
	"github.com/gartstein/companyledger/internal/ledger/payroll"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config struct for YAML configuration
type Config struct {
	HTTPPort        int           `yaml:"HTTP_PORT"`
	DBHost          string        `yaml:"DB_HOST"`
	DBPort          int           `yaml:"DB_PORT"`
	DBUser          string        `yaml:"DB_USER"`
	DBPassword      string        `yaml:"DB_PASSWORD"`
	DBName          string        `yaml:"DB_NAME"`
	DBSSLMode       string        `yaml:"DB_SSLMODE"`
	KafkaBrokers    []string      `yaml:"KAFKA_BROKERS"`
	Topic           string        `yaml:"TOPIC"`
	FundsBridgeURL  string        `yaml:"FUNDS_BRIDGE_URL"`
	Currency        string        `yaml:"CURRENCY"`
	CurrencySkinID  uint64        `yaml:"CURRENCY_SKIN_ID"`
	PayrollInterval time.Duration `yaml:"PAYROLL_INTERVAL"`
}

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := connectDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}

	bridge := funds.NewHostClient(funds.ClientConfig{
		BaseURL:        cfg.FundsBridgeURL,
		Currency:       cfg.Currency,
		CurrencySkinID: cfg.CurrencySkinID,
	}, logger)

	engine, err := controller.NewEngine(context.Background(), repo, bridge, bridge, producer, logger)
	if err != nil {
		logger.Fatal("failed to initialize ledger engine", zap.Error(err))
	}

	scheduler := payroll.NewScheduler(cfg.PayrollInterval, engine, logger)
	scheduler.Start()

	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandler(engine, logger).Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Stop payroll first so no settlement runs against a closing engine.
	scheduler.Stop()
	engine.Close()
	producer.Close()
	if err := repo.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped properly")
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// loadConfig loads configuration. Use real config tooling (e.g. Viper) in production.
// TODO: some settings to env
func loadConfig() (*Config, error) {
	configPath := filepath.Join("internal", "ledger", "config", "config.yaml")
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.PayrollInterval == 0 {
		cfg.PayrollInterval = time.Hour
	}
	return &cfg, nil
}

// connectDatabase opens the repository, retrying while the database comes up.
func connectDatabase(cfg *Config) (*gorm.Repository, error) {
	dbConf := &gorm.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	var repo *gorm.Repository
	err := backoff.Retry(func() error {
		var err error
		repo, err = gorm.NewRepository(dbConf)
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	return repo, err
}

// waitForShutdown blocks until an interrupt or SIGTERM is received.
func waitForShutdown(logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received")
}
