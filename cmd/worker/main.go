package main

import (
	"context"
	"encoding/json"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/reviewloop/outreach-backend/internal/config"
	"github.com/reviewloop/outreach-backend/internal/db"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/service"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

// The transport worker consumes accepted sends, invokes the delivery
// provider, and writes delivery status back onto the owning records.
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

	processor := &service.DeliveryProcessor{
		Requests:  &repository.ReviewRequestRepository{DB: db.DB},
		Sequences: &repository.NurtureRepository{DB: db.DB},
		Provider:  &transport.MockProvider{},
		Logger:    logger,
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to open a channel")
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.OutboundSendTopic, // name
		true,                    // durable
		false,                   // delete when unused
		false,                   // exclusive
		false,                   // no-wait
		nil,                     // arguments
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to declare queue")
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to register consumer")
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queue.OutboundSendJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.WithError(err).Warn("Invalid job")
				d.Ack(false)
				continue
			}

			err := processor.Process(context.Background(), job)
			if err != nil {
				logger.WithError(err).WithField("reference_id", job.ReferenceID).Warn("Failed to process send")
				// Retry logic: requeue up to 3 times
				var retryCount int32
				if raw, ok := d.Headers["x-retry-count"]; ok {
					if n, ok := raw.(int32); ok {
						retryCount = n
					}
				}
				if retryCount < 3 {
					d.Nack(false, true) // requeue
					continue
				}
			}

			d.Ack(false)
		}
	}()

	logger.Info("Worker running, waiting for messages...")
	<-forever
}
