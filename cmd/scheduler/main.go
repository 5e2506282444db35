package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/reviewloop/outreach-backend/internal/config"
	"github.com/reviewloop/outreach-backend/internal/db"
	"github.com/reviewloop/outreach-backend/internal/metrics"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/redisclient"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/service"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

// The scheduler is the external cron collaborator: on every tick it asks
// each agent to advance all sequences whose next action time has elapsed.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

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

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to RabbitMQ")
	}
	defer conn.Close()

	amqpQueue, err := queue.NewAMQPQueue(conn, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up send queue")
	}
	sender := &transport.QueueSender{Queue: amqpQueue}

	m := metrics.NewMetrics()

	requestRepo := &repository.ReviewRequestRepository{DB: db.DB}
	nurtureRepo := &repository.NurtureRepository{DB: db.DB}
	handoffRepo := &repository.HandoffRepository{DB: db.DB}
	templateRepo := &repository.TemplateRepository{DB: db.DB}
	ruleRepo := &repository.SafetyRuleRepository{DB: db.DB}

	safety := service.NewSafetyService(ruleRepo, logger, m, cfg.RuleCacheTTL())
	limiter := &service.RateLimiter{
		Store:        &repository.RedisRateLimitStore{RDB: rdb},
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(cfg.SchedulerInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.WithField("interval", cfg.SchedulerInterval().String()).Info("Scheduler running")
	runBatches(ctx, logger, reviewAgent, nurtureAgent)

	for {
		select {
		case <-ticker.C:
			runBatches(ctx, logger, reviewAgent, nurtureAgent)
		case <-sigCh:
			logger.Info("Received shutdown signal")
			return
		}
	}
}

func runBatches(ctx context.Context, logger *logrus.Logger, reviewAgent *service.ReviewRequestAgent, nurtureAgent *service.LeadNurtureAgent) {
	if n, err := reviewAgent.RunFollowupSequence(ctx); err != nil {
		logger.WithError(err).Error("review follow-up batch failed")
	} else {
		logger.WithField("processed", n).Info("review follow-up batch complete")
	}

	if n, err := nurtureAgent.RunScheduledSequences(ctx); err != nil {
		logger.WithError(err).Error("nurture step batch failed")
	} else {
		logger.WithField("processed", n).Info("nurture step batch complete")
	}
}
