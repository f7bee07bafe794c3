package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/crypto-portfolio-service/internal/api"
	"github.com/trogers1052/crypto-portfolio-service/internal/coinlore"
	"github.com/trogers1052/crypto-portfolio-service/internal/config"
	"github.com/trogers1052/crypto-portfolio-service/internal/database"
	"github.com/trogers1052/crypto-portfolio-service/internal/kafka"
	"github.com/trogers1052/crypto-portfolio-service/internal/logger"
	"github.com/trogers1052/crypto-portfolio-service/internal/portfolio"
	"github.com/trogers1052/crypto-portfolio-service/internal/pricing"
	"github.com/trogers1052/crypto-portfolio-service/internal/refresher"
	"github.com/trogers1052/crypto-portfolio-service/internal/symbols"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := coinlore.NewClient(cfg.CoinLore.BaseURL, cfg.CoinLore.Timeout)

	store, closeStore := indexStore(cfg)
	defer closeStore()

	index := symbols.NewIndex(store)
	builder := symbols.NewBuilder(client, store, index, cfg.CoinLore.PageSize)

	var prices pricing.PriceSource = pricing.NewResolver(client, index)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, price cache will be bypassed until it recovers")
		}
		prices = pricing.NewCachedResolver(rdb, prices, cfg.Redis.Prefix, cfg.Redis.TTL)
	}

	holdings := portfolio.NewStore()
	refresh := refresher.New(prices, holdings, cfg.Refresh.Interval)
	service := portfolio.NewService(portfolio.NewIngestor(index), holdings, refresh)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()

		builder.SetPublisher(producer)
		refresh.SetPublisher(producer)
		service.SetPublisher(producer)

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, index)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Kafka consumer stopped")
			}
		}()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Str("group_id", cfg.Kafka.GroupID).Msg("Kafka enabled")
	}

	refreshDone := make(chan struct{})
	go func() {
		refresh.Run(ctx)
		close(refreshDone)
	}()

	handler := api.NewHandler(builder, service, refresh)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("index_store", cfg.Index.Store).
			Dur("refresh_interval", cfg.Refresh.Interval).
			Msg("Crypto portfolio service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	<-refreshDone
}

// indexStore returns the configured symbol index store and a cleanup func
func indexStore(cfg *config.Config) (symbols.Store, func()) {
	if cfg.Index.Store != config.IndexStorePostgres {
		return symbols.NewFileStore(cfg.Index.FilePath), func() {}
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.DBName).Msg("Symbol index stored in PostgreSQL")
	return database.NewSymbolIndexStore(db), func() { db.Close() }
}
