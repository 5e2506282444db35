package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/reviewloop/outreach-backend/internal/config"
	"github.com/reviewloop/outreach-backend/internal/controller"
	"github.com/reviewloop/outreach-backend/internal/db"
	"github.com/reviewloop/outreach-backend/internal/handler"
	"github.com/reviewloop/outreach-backend/internal/metrics"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/redisclient"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/service"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db.Init(cfg.DatabaseURL, logger)

	rdb, err := redisclient.New(cfg.RedisURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rdb.Close()

	m := metrics.NewMetrics()

	requestRepo := &repository.ReviewRequestRepository{DB: db.DB}
	nurtureRepo := &repository.NurtureRepository{DB: db.DB}
	handoffRepo := &repository.HandoffRepository{DB: db.DB}
	templateRepo := &repository.TemplateRepository{DB: db.DB}
	ruleRepo := &repository.SafetyRuleRepository{DB: db.DB}
	limitStore := &repository.RedisRateLimitStore{RDB: rdb}

	// Outbound sends go through RabbitMQ to the transport worker. Without
	// a broker the server falls back to an in-process queue with a mock
	// provider, which keeps local runs single-binary.
	var sendQueue queue.Queue
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.WithError(err).Warn("RabbitMQ unavailable, using in-memory send queue")
		inmem := queue.NewInMemoryQueue()
		processor := &service.DeliveryProcessor{
			Requests:  requestRepo,
			Sequences: nurtureRepo,
			Provider:  &transport.MockProvider{},
			Logger:    logger,
		}
		inmem.Subscribe(queue.OutboundSendTopic, func(payload any) error {
			job, ok := payload.(queue.OutboundSendJob)
			if !ok {
				logger.Warn("invalid payload type on send queue")
				return nil
			}
			return processor.Process(context.Background(), job)
		})
		sendQueue = inmem
	} else {
		defer conn.Close()
		amqpQueue, err := queue.NewAMQPQueue(conn, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to set up send queue")
		}
		sendQueue = amqpQueue
	}
	sender := &transport.QueueSender{Queue: sendQueue}

	safety := service.NewSafetyService(ruleRepo, logger, m, cfg.RuleCacheTTL())
	limiter := &service.RateLimiter{
		Store:        limitStore,
		Logger:       logger,
		Metrics:      m,
		DailyLimit:   cfg.DailyLimit,
		WeeklyLimit:  cfg.WeeklyLimit,
		MonthlyLimit: cfg.MonthlyLimit,
	}
	handoffs := &service.HandoffService{Repo: handoffRepo, Logger: logger, Metrics: m}

	reviewAgent := &service.ReviewRequestAgent{
		Requests:         requestRepo,
		Templates:        templateRepo,
		Safety:           safety,
		Limiter:          limiter,
		Handoffs:         handoffs,
		Sender:           sender,
		Logger:           logger,
		Metrics:          m,
		MaxFollowups:     cfg.MaxReviewFollowups,
		FollowupInterval: cfg.ReviewFollowupInterval(),
		NegativeCutoff:   cfg.NegativeReviewCutoff,
		BatchPageSize:    cfg.BatchPageSize,
	}
	nurtureAgent := &service.LeadNurtureAgent{
		Sequences:     nurtureRepo,
		Templates:     templateRepo,
		Safety:        safety,
		Limiter:       limiter,
		Handoffs:      handoffs,
		Sender:        sender,
		Classifier:    &service.KeywordClassifier{},
		Logger:        logger,
		Metrics:       m,
		MaxSteps:      cfg.MaxNurtureSteps,
		StepInterval:  cfg.NurtureStepInterval(),
		BatchPageSize: cfg.BatchPageSize,
	}

	reviewController := &controller.ReviewController{Agent: reviewAgent}
	nurtureController := &controller.NurtureController{Agent: nurtureAgent}
	handoffHandler := &handler.HandoffHandler{Service: handoffs}

	r := chi.NewRouter()

	// Trigger + callback routes
	r.Post("/tenants/{tenantID}/review-requests", reviewController.CreateReviewRequest)
	r.Post("/review-requests/{id}/response", reviewController.ProcessReviewResponse)
	r.Post("/review-requests/{id}/click", reviewController.MarkClicked)
	r.Post("/tenants/{tenantID}/nurture-sequences", nurtureController.StartSequence)
	r.Post("/tenants/{tenantID}/leads/{leadID}/messages", nurtureController.ProcessInbound)
	r.Post("/nurture-sequences/{id}/appointment", nurtureController.ScheduleAppointment)

	// Operator surface
	r.Get("/handoffs", handoffHandler.ListPending)
	r.Post("/handoffs/{id}/claim", handoffHandler.Claim)
	r.Post("/handoffs/{id}/resolve", handoffHandler.Resolve)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.Port).Info("🚀 Server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-sigCh
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
