package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rate-analysis-service/consumer"
	"rate-analysis-service/controllers"
	"rate-analysis-service/database"
	"rate-analysis-service/kafka"
	logpkg "rate-analysis-service/logger"
	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	awspkg "rate-analysis-service/pkg/aws"
	"rate-analysis-service/providers"
	"rate-analysis-service/ratecache"
	"rate-analysis-service/repository"
	"rate-analysis-service/routes"
	"rate-analysis-service/services"
	"rate-analysis-service/tracker"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "rate-analysis-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// CloudWatch log sink (non-fatal)
	cwClient, cwErr := awspkg.NewCloudWatchLogsClient(context.Background(), serviceName)

	var logger *zap.Logger
	if cwErr == nil && cwClient.IsEnabled() {
		logger, err = logpkg.NewWithWriter(cfg.Environment, cwClient)
	} else {
		logger, err = logpkg.New(cfg.Environment)
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cwErr != nil {
		logger.Warn("CloudWatch logs unavailable, console only", zap.Error(cwErr))
	}

	db, err := database.ConnectPostgres(cfg.DatabaseConfig(), logger,
		&models.Analysis{},
		&models.AnalysisRate{},
		&models.CarrierConfig{},
		&models.MarkupProfile{},
		&models.Client{},
		&models.SavedReport{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	// AWS clients (non-fatal; SNS and S3 stay disabled without credentials)
	awsCfg, awsErr := awspkg.LoadAWSConfig(context.Background())
	var snsClient awspkg.SNSPublisher
	var s3Client *s3.Client
	if awsErr != nil {
		logger.Warn("AWS config unavailable, SNS and S3 disabled", zap.Error(awsErr))
	} else {
		snsClient = awspkg.NewSNSClient(awsCfg)
		s3Client = awspkg.NewS3Client(awsCfg)
	}

	metricsClient, err := awspkg.NewMetricsClient(context.Background())
	if err != nil {
		logger.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// Kafka producer (optional)
	var producer services.LifecycleProducer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAnalysisTopic)
		if err != nil {
			logger.Fatal("Failed to init Kafka producer", zap.Error(err))
		}
		defer p.Close()
		producer = p
	} else {
		logger.Warn("KAFKA_BROKERS not set, lifecycle events disabled")
	}

	// Rate provider
	var provider providers.RateProvider
	if cfg.RateGatewayURL != "" {
		provider = providers.NewGatewayProvider(cfg.RateGatewayURL, cfg.RateGatewayAPIKey)
	} else {
		logger.Warn("RATE_GATEWAY_URL not set, using static rates")
		provider = providers.NewStaticProvider()
	}

	// Repositories
	analysisRepo := repository.NewGormAnalysisRepository(db)
	rateRepo := repository.NewGormAnalysisRateRepository(db)
	configRepo := repository.NewGormCarrierConfigRepository(db)
	markupRepo := repository.NewGormMarkupProfileRepository(db)
	clientRepo := repository.NewGormClientRepository(db)
	reportRepo := repository.NewGormSavedReportRepository(db)

	// Trackers poll the database so status survives restarts
	trackers := services.NewTrackerRegistry(services.NewDBStatusFetcher(analysisRepo), logger, tracker.Options{})
	defer trackers.Shutdown()

	// Services
	analysisService := services.NewAnalysisService(
		analysisRepo,
		rateRepo,
		configRepo,
		markupRepo,
		provider,
		trackers,
		producer,
		snsClient,
		cfg.AnalysisSNSTopicARN,
		metricsClient,
		ratecache.Options{},
		logger,
	)
	markupService := services.NewMarkupProfileService(markupRepo, logger)
	configService := services.NewCarrierConfigService(configRepo, logger)
	clientService := services.NewClientService(clientRepo, logger)
	reportService := services.NewReportService(analysisRepo, rateRepo, reportRepo, s3Client, cfg.ReportsBucket, metricsClient, logger)

	// SQS status consumer (optional)
	queueURL := cfg.StatusQueueURL
	if queueURL == "" && cfg.StatusQueueName != "" && awsErr == nil {
		if url, err := awspkg.GetQueueURL(context.Background(), awsCfg, cfg.StatusQueueName); err == nil {
			queueURL = url
		} else {
			logger.Warn("Failed to resolve status queue URL", zap.Error(err))
		}
	}
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if queueURL != "" && awsErr == nil {
		statusConsumer := consumer.NewStatusConsumer(awsCfg, queueURL, trackers, metricsClient, logger)
		go statusConsumer.Start(consumerCtx)
	} else {
		logger.Info("Status queue not configured, SQS consumer disabled")
	}

	// Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routes.Register(r, cfg.JWTSecret, routes.Controllers{
		Analyses: controllers.NewAnalysisController(analysisService),
		Profiles: controllers.NewMarkupProfileController(markupService),
		Configs:  controllers.NewCarrierConfigController(configService),
		Clients:  controllers.NewClientController(clientService),
		Reports:  controllers.NewReportController(reportService),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Rate analysis service started", zap.String("port", cfg.Port))
	<-quit
	logger.Info("Shutting down rate analysis service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	consumerCancel()
	if err := analysisService.Shutdown(shutdownCtx); err != nil {
		logger.Error("Analysis shutdown error", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}
