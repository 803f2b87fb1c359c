package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Synapse/backend/go/internal/card_service/api"
	"Synapse/backend/go/internal/card_service/resolver"
	"Synapse/backend/go/internal/card_service/service"
	"Synapse/backend/go/internal/card_service/store"
	"Synapse/backend/go/internal/card_service/synthesizer"
	"Synapse/backend/go/internal/cluster_service/lock"
	"Synapse/backend/go/internal/cluster_service/publisher"
	clusterservice "Synapse/backend/go/internal/cluster_service/service"
	clusterstore "Synapse/backend/go/internal/cluster_service/store"
	"Synapse/backend/go/internal/config"
	kafkadb "Synapse/backend/go/internal/database/kafka"
	miniodb "Synapse/backend/go/internal/database/minio"
	mongodb "Synapse/backend/go/internal/database/mongo"
	redisdb "Synapse/backend/go/internal/database/redis"
	"Synapse/backend/go/internal/embedding"
	"Synapse/backend/go/internal/llm"
	"Synapse/backend/go/pkg/circuitbreaker"
	httpserver "Synapse/backend/go/pkg/http"
	"Synapse/backend/go/pkg/logger"
	"Synapse/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/unidoc/unioffice/v2/common/license"
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

	// Initialize logger
	if err := logger.InitFromString(cfg.Logger.Level); err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	serviceLogger := logger.New("CardService", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if key := cfg.Ingestion.OfficeLicenseKey; key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			serviceLogger.WithErr(err).Warn("Failed to set office license key; DOCX reading and export may fail")
		}
	}

	// 1. Storage
	var (
		cardStore    store.CardStore
		clusterStore clusterstore.ClusterStore
	)
	mongoClient, err := mongodb.Connect(ctx, &cfg.Databases.MongoDB, serviceLogger)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.Databases.MongoDB.Database)
	if err := mongodb.EnsureIndexes(ctx, db, cfg.CardService.CardCollection, cfg.CardService.ClusterCollection); err != nil {
		serviceLogger.WithErr(err).Warn("Failed to create MongoDB indexes")
	}
	cardStore = store.NewMongoCardStore(db, cfg.CardService.CardCollection)
	clusterStore = clusterstore.NewMongoClusterStore(db, cfg.CardService.ClusterCollection)

	var archive store.DocumentArchive
	minioClient, err := miniodb.Connect(ctx, &cfg.Databases.MinIO, serviceLogger)
	if err != nil {
		serviceLogger.WithErr(err).Warn("MinIO unavailable; uploaded documents will not be archived")
	} else if minioClient != nil {
		archive = store.NewMinIOArchive(minioClient, cfg.Databases.MinIO.Bucket)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	rdb, err := redisdb.Connect(ctx, &cfg.Databases.Redis, serviceLogger)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to connect to Redis")
	}
	if rdb != nil {
		ttl := config.Duration(cfg.Clustering.LockTTL, 2*time.Minute)
		locker = lock.Chain{locker, lock.NewRedisLocker(rdb, "synapse:recluster:", ttl, serviceLogger)}
	}

	// 2. Models
	var breaker circuitbreaker.CircuitBreaker
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err = httpserver.NewCircuitBreaker(cfg.Middleware.CircuitBreaker,
			circuitbreaker.OnStateChange(func(from, to circuitbreaker.State) {
				serviceLogger.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("LLM circuit breaker changed state")
			}))
		if err != nil {
			serviceLogger.WithErr(err).Fatal("Failed to create LLM circuit breaker")
		}
	}
	model, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to create LLM client")
	}
	gen := llm.NewGenerator(model, config.Duration(cfg.Ingestion.GenerationTimeout, time.Minute), breaker, serviceLogger)

	embedModel, err := embedding.NewFromConfig(cfg.Embedding)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to create embedding model")
	}
	embedder := embedding.NewFixedDimension(embedModel, cfg.Embedding.Dimension, config.Duration(cfg.Ingestion.EmbeddingTimeout, 20*time.Second))

	// 3. Pipeline
	videos, err := resolver.NewVideoMatcher(cfg.Ingestion.VideoHosts)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Invalid video host pattern")
	}
	fetchClient, err := httpserver.NewClient(cfg.Middleware.CircuitBreaker,
		config.Duration(cfg.Ingestion.FetchTimeout, 30*time.Second),
		httpserver.WithUserAgent(cfg.Ingestion.UserAgent))
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to create fetch client")
	}
	res := resolver.New(
		videos,
		resolver.NewHTTPPageFetcher(fetchClient, config.Duration(cfg.Ingestion.ChallengeWait, 10*time.Second)),
		resolver.NewYouTubeTranscriptFetcher(fetchClient),
		resolver.NewDocumentExtractor(cfg.CardService.MaxUploadBytes),
		cfg.Ingestion.MinTranscriptWords,
		serviceLogger,
	)

	topics, err := synthesizer.NewTopicNamer(gen, cfg.Clustering.FallbackTopicName, cfg.Clustering.TopicCacheSize, serviceLogger)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to create topic namer")
	}
	synth := synthesizer.New(gen, cfg.Ingestion.MaxTags, topics, serviceLogger)

	cardService := service.NewCardService(res, synth, embedder, cardStore, archive, cfg.Ingestion.ChunkSize, serviceLogger)
	clusterService := clusterservice.NewClusterService(cardStore, clusterStore, synth, locker, clusterservice.Params{
		Eps:           cfg.Clustering.Eps,
		MinSamples:    cfg.Clustering.MinSamples,
		MiscTopicName: cfg.Clustering.MiscTopicName,
	}, serviceLogger)

	// 4. Recluster queue. Without a topic, recompute runs inside the request.
	var (
		queue       api.Enqueuer
		reclusterer *publisher.ReclusterPublisher
	)
	if cfg.CardService.ReclusterTopic != "" && len(cfg.Databases.Kafka.Brokers) > 0 {
		if err := kafkadb.EnsureTopics(&cfg.Databases.Kafka, serviceLogger); err != nil {
			serviceLogger.WithErr(err).Warn("Failed to ensure Kafka topics")
		}
		reclusterer = publisher.NewReclusterPublisher(cfg.Databases.Kafka.Brokers, cfg.CardService.ReclusterTopic, serviceLogger)
		queue = reclusterer
	}

	// 5. HTTP
	var limiter *ratelimiter.KeyedLimiter
	if rl := cfg.Middleware.RateLimiter; rl.Enabled && rl.PerUser {
		if _, err := httpserver.NewRateLimiter(rl); err != nil {
			serviceLogger.WithErr(err).Fatal("Invalid rate limiter configuration")
		}
		limiter, err = ratelimiter.NewKeyedLimiter(10000, func() ratelimiter.RateLimiter {
			l, _ := httpserver.NewRateLimiter(rl)
			return l
		})
		if err != nil {
			serviceLogger.WithErr(err).Fatal("Failed to create per-user rate limiter")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, api.NewAPI(cardService, clusterService, queue, cfg.CardService.MaxUploadBytes, serviceLogger), cfg.Auth.JwtSecret, limiter)

	srv, err := httpserver.NewServer(cfg,
		httpserver.WithAddress(cfg.CardService.ServerAddress),
		httpserver.WithLogger(serviceLogger),
		httpserver.WithTimeouts(30*time.Second, 5*time.Minute),
	)
	if err != nil {
		serviceLogger.WithErr(err).Fatal("Failed to create HTTP server")
	}
	srv.Handle("/", router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithErr(err).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithErr(err).Error("Server forced to shutdown")
	}

	cancel()
	if reclusterer != nil {
		if err := reclusterer.Close(); err != nil {
			serviceLogger.WithErr(err).Error("Error closing Kafka publisher")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			serviceLogger.WithErr(err).Error("Error closing Redis client")
		}
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		serviceLogger.WithErr(err).Error("Error disconnecting from MongoDB")
	}

	serviceLogger.Info("Server gracefully stopped")
}
