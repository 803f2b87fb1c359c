package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	cardstore "Synapse/backend/go/internal/card_service/store"
	"Synapse/backend/go/internal/card_service/synthesizer"
	"Synapse/backend/go/internal/cluster_service/consumer"
	"Synapse/backend/go/internal/cluster_service/lock"
	"Synapse/backend/go/internal/cluster_service/service"
	"Synapse/backend/go/internal/cluster_service/store"
	"Synapse/backend/go/internal/config"
	kafkadb "Synapse/backend/go/internal/database/kafka"
	mongodb "Synapse/backend/go/internal/database/mongo"
	redisdb "Synapse/backend/go/internal/database/redis"
	"Synapse/backend/go/internal/llm"
	"Synapse/backend/go/pkg/circuitbreaker"
	httpserver "Synapse/backend/go/pkg/http"
	"Synapse/backend/go/pkg/logger"
)

const defaultConfigPath = "backend/go/internal/config/config.yaml"

func main() {
	// Load configuration
	cfgPath := os.Getenv("SYNAPSE_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.InitFromString(cfg.Logger.Level); err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	workerLogger := logger.New("ClusterWorker", "", "")

	if cfg.CardService.ReclusterTopic == "" || len(cfg.Databases.Kafka.Brokers) == 0 {
		workerLogger.Fatal("Cluster worker needs cardService.reclusterTopic and Kafka brokers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongodb.Connect(ctx, &cfg.Databases.MongoDB, workerLogger)
	if err != nil {
		workerLogger.WithErr(err).Fatal("Failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.Databases.MongoDB.Database)

	// A single worker still shares the lock with any card service running
	// inline recomputes.
	var locker lock.Locker = lock.NewKeyedMutex()
	rdb, err := redisdb.Connect(ctx, &cfg.Databases.Redis, workerLogger)
	if err != nil {
		workerLogger.WithErr(err).Fatal("Failed to connect to Redis")
	}
	if rdb != nil {
		ttl := config.Duration(cfg.Clustering.LockTTL, 2*time.Minute)
		locker = lock.Chain{locker, lock.NewRedisLocker(rdb, "synapse:recluster:", ttl, workerLogger)}
	}

	var breaker circuitbreaker.CircuitBreaker
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err = httpserver.NewCircuitBreaker(cfg.Middleware.CircuitBreaker,
			circuitbreaker.OnStateChange(func(from, to circuitbreaker.State) {
				workerLogger.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("LLM circuit breaker changed state")
			}))
		if err != nil {
			workerLogger.WithErr(err).Fatal("Failed to create LLM circuit breaker")
		}
	}
	model, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		workerLogger.WithErr(err).Fatal("Failed to create LLM client")
	}
	gen := llm.NewGenerator(model, config.Duration(cfg.Ingestion.GenerationTimeout, time.Minute), breaker, workerLogger)
	topics, err := synthesizer.NewTopicNamer(gen, cfg.Clustering.FallbackTopicName, cfg.Clustering.TopicCacheSize, workerLogger)
	if err != nil {
		workerLogger.WithErr(err).Fatal("Failed to create topic namer")
	}

	clusterService := service.NewClusterService(
		cardstore.NewMongoCardStore(db, cfg.CardService.CardCollection),
		store.NewMongoClusterStore(db, cfg.CardService.ClusterCollection),
		topics,
		locker,
		service.Params{
			Eps:           cfg.Clustering.Eps,
			MinSamples:    cfg.Clustering.MinSamples,
			MiscTopicName: cfg.Clustering.MiscTopicName,
		},
		workerLogger,
	)

	if err := kafkadb.EnsureTopics(&cfg.Databases.Kafka, workerLogger); err != nil {
		workerLogger.WithErr(err).Warn("Failed to ensure Kafka topics")
	}
	reclusterConsumer := consumer.NewReclusterConsumer(cfg.Databases.Kafka.Brokers, cfg.CardService.ReclusterTopic, cfg.ClusterWorker.GroupID, workerLogger)
	reclusterConsumer.Start(ctx, consumer.NewHandler(clusterService, workerLogger))
	workerLogger.WithField("topic", cfg.CardService.ReclusterTopic).Info("Recluster consumer started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	workerLogger.Info("Shutting down cluster worker...")

	cancel()
	if err := reclusterConsumer.Close(); err != nil {
		workerLogger.WithErr(err).Error("Error closing Kafka consumer")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		workerLogger.WithErr(err).Error("Error disconnecting from MongoDB")
	}
	workerLogger.Info("Cluster worker stopped")
}
