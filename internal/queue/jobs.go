package queue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"contractiq/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// jobMessage is the queue payload. Only the id travels on the wire; the full
// record lives in the record store.
type jobMessage struct {
	JobID string `json:"job_id"`
}

// JobQueue is the admitted-job queue. Delivery is at-least-once; the record
// store's claim CAS is what makes duplicate deliveries harmless.
type JobQueue interface {
	// EnqueueJob publishes a job id for immediate pickup
	EnqueueJob(id string) error

	// EnqueueRetry publishes a job id that becomes deliverable after delay.
	// The message parks in the retry queue until its TTL expires, then the
	// dead-letter binding routes it back to the jobs queue.
	EnqueueRetry(id string, delay time.Duration) error

	// Consume returns the delivery stream of admitted jobs
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

type jobQueue struct {
	client Client
	cfg    config.RabbitMQConfig
}

// NewJobQueue declares the queue topology and returns the JobQueue.
// Topology: direct exchange -> jobs queue; retry queue with the jobs queue as
// its dead-letter target.
func NewJobQueue(client Client, cfg config.RabbitMQConfig) (JobQueue, error) {
	if err := client.DeclareExchange(cfg.ExchangeName, "direct"); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := client.DeclareQueue(cfg.QueueName, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}
	if err := client.BindQueue(cfg.QueueName, cfg.ExchangeName, cfg.QueueName); err != nil {
		return nil, fmt.Errorf("failed to bind queue %s: %w", cfg.QueueName, err)
	}

	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    cfg.ExchangeName,
		"x-dead-letter-routing-key": cfg.QueueName,
	}
	if _, err := client.DeclareQueue(cfg.RetryQueue, retryArgs); err != nil {
		return nil, fmt.Errorf("failed to declare retry queue %s: %w", cfg.RetryQueue, err)
	}
	if err := client.BindQueue(cfg.RetryQueue, cfg.ExchangeName, cfg.RetryQueue); err != nil {
		return nil, fmt.Errorf("failed to bind retry queue %s: %w", cfg.RetryQueue, err)
	}

	return &jobQueue{client: client, cfg: cfg}, nil
}

func (q *jobQueue) publish(routingKey, id, expiration string) error {
	body, err := json.Marshal(jobMessage{JobID: id})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := amqp.Table{
		"job_id": id,
	}

	if err := q.client.Publish(q.cfg.ExchangeName, routingKey, body, headers, expiration); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (q *jobQueue) EnqueueJob(id string) error {
	return q.publish(q.cfg.QueueName, id, "")
}

func (q *jobQueue) EnqueueRetry(id string, delay time.Duration) error {
	if delay <= 0 {
		return q.EnqueueJob(id)
	}
	expiration := strconv.FormatInt(delay.Milliseconds(), 10)
	return q.publish(q.cfg.RetryQueue, id, expiration)
}

func (q *jobQueue) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	return q.client.Consume(q.cfg.QueueName, consumerTag)
}

// JobIDFromDelivery extracts the job id from a delivery, preferring the
// header and falling back to the body.
func JobIDFromDelivery(d amqp.Delivery) (string, bool) {
	if id, ok := d.Headers["job_id"].(string); ok && id != "" {
		return id, true
	}

	var msg jobMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.JobID == "" {
		return "", false
	}
	return msg.JobID, true
}
