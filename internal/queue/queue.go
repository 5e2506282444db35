package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/reviewloop/outreach-backend/internal/model"
)

// OutboundSendTopic is the queue the agents publish accepted sends to and
// the transport worker consumes from.
const OutboundSendTopic = "outbound_sends"

// OutboundSendJob is the payload handed to the transport worker. MessageID
// is set for nurture conversation messages; ReferenceID points at the
// owning review request or nurture sequence.
type OutboundSendJob struct {
	TenantID    string               `json:"tenant_id"`
	AgentType   model.AgentType      `json:"agent_type"`
	ReferenceID string               `json:"reference_id"`
	MessageID   string               `json:"message_id,omitempty"`
	To          string               `json:"to"`
	Text        string               `json:"text"`
	Method      model.DeliveryMethod `json:"method"`
}

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry, used by tests and
// single-binary runs.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// jobEnvelope wraps a payload with retry info
type jobEnvelope struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := jobEnvelope{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries with backoff
func (q *InMemoryQueue) processJob(handler func(payload any) error, job jobEnvelope) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			return // No requeue
		}

		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// AMQPQueue publishes jobs to a durable RabbitMQ queue. Consumption lives
// in cmd/worker.
type AMQPQueue struct {
	Channel *amqp.Channel
	Logger  *logrus.Logger
}

func NewAMQPQueue(conn *amqp.Connection, logger *logrus.Logger) (*AMQPQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(OutboundSendTopic, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPQueue{Channel: ch, Logger: logger}, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.Channel.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("subscribe is handled by the worker process, not the publisher")
}

var _ Queue = (*InMemoryQueue)(nil)
var _ Queue = (*AMQPQueue)(nil)
