package queue

import (
	"context"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/imageops/eda-pipeline/internal/utils"
)

// BatchHandler processes one invocation's worth of queue message bodies.
// An error fails the whole batch: every delivery is redriven together.
type BatchHandler interface {
	HandleBatch(ctx context.Context, bodies [][]byte) error
}

// rawPublisher is the slice of amqp.Channel the redrive path needs.
type rawPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ConsumerConfig carries the queue parameters provisioning owns and the
// consumer treats as fixed.
type ConsumerConfig struct {
	QueueName string
	// BatchSize caps how many deliveries one invocation receives.
	BatchSize int
	// BatchWindow bounds how long a partial batch waits before the
	// handler is invoked with whatever has arrived.
	BatchWindow time.Duration
	// MaxReceiveCount is the retry budget before OnExhausted applies.
	MaxReceiveCount int
	OnExhausted     ExhaustMode
	// InvocationTimeout is the hard wall-clock budget per batch.
	InvocationTimeout time.Duration
}

// Consumer runs stateless batch invocations against one queue. Several
// consumers may run in parallel; each owns a disjoint set of unacked
// deliveries, so at-least-once delivery is the only guarantee.
type Consumer struct {
	url     string
	cfg     ConsumerConfig
	handler BatchHandler
}

func NewConsumer(url string, cfg ConsumerConfig, handler BatchHandler) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = 10 * time.Second
	}
	if cfg.MaxReceiveCount <= 0 {
		cfg.MaxReceiveCount = 1
	}
	if cfg.InvocationTimeout <= 0 {
		cfg.InvocationTimeout = 15 * time.Second
	}
	return &Consumer{url: url, cfg: cfg, handler: handler}
}

// Start consumes until the context is cancelled, recreating the channel
// when the broker drops it.
func (c *Consumer) Start(ctx context.Context) error {
	var consumerCh *amqp.Channel
	defer func() {
		if consumerCh != nil {
			consumerCh.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] Shutting down...", c.cfg.QueueName)
			return ctx.Err()
		default:
		}

		if consumerCh == nil || consumerCh.IsClosed() {
			conn, err := utils.NewRabbitMQClient(c.url)
			if err != nil {
				log.Printf("[%s] failed to connect to RabbitMQ: %v", c.cfg.QueueName, err)
				time.Sleep(5 * time.Second)
				continue
			}
			newCh, err := utils.NewChannel(conn)
			if err != nil {
				log.Printf("[%s] Failed to create channel: %v", c.cfg.QueueName, err)
				time.Sleep(5 * time.Second)
				continue
			}
			consumerCh = newCh
			log.Printf("[%s] Channel created", c.cfg.QueueName)
		}

		msgs, err := utils.NewQueueConsumer(consumerCh, c.cfg.QueueName)
		if err != nil {
			log.Printf("[%s] Failed to start consumer: %v", c.cfg.QueueName, err)
			consumerCh.Close()
			consumerCh = nil
			time.Sleep(5 * time.Second)
			continue
		}

		log.Printf("[%s] Worker started, waiting for messages...", c.cfg.QueueName)

		for {
			batch, open := collectBatch(ctx, msgs, c.cfg.BatchSize, c.cfg.BatchWindow)
			if len(batch) > 0 {
				c.dispatch(ctx, consumerCh, batch)
			}
			if ctx.Err() != nil {
				log.Printf("[%s] Shutting down...", c.cfg.QueueName)
				return ctx.Err()
			}
			if !open {
				log.Printf("[%s] Channel closed, will recreate", c.cfg.QueueName)
				consumerCh = nil
				time.Sleep(2 * time.Second)
				break
			}
		}
	}
}

// collectBatch blocks for the first delivery, then accumulates until the
// batch-size threshold or the wait window elapses. The second return is
// false once the delivery channel has closed.
func collectBatch(ctx context.Context, msgs <-chan amqp.Delivery, size int, window time.Duration) ([]amqp.Delivery, bool) {
	var batch []amqp.Delivery

	select {
	case <-ctx.Done():
		return nil, true
	case d, ok := <-msgs:
		if !ok {
			return nil, false
		}
		batch = append(batch, d)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	for len(batch) < size {
		select {
		case <-ctx.Done():
			return batch, true
		case <-timer.C:
			return batch, true
		case d, ok := <-msgs:
			if !ok {
				return batch, false
			}
			batch = append(batch, d)
		}
	}
	return batch, true
}

// dispatch runs the handler on one batch and settles every delivery.
// Success acks the whole batch. Failure redrives the whole batch: each
// delivery with budget left is republished to its own queue with the
// receive count bumped, the rest follow the exhaust mode.
func (c *Consumer) dispatch(ctx context.Context, pub rawPublisher, batch []amqp.Delivery) {
	ictx, cancel := context.WithTimeout(ctx, c.cfg.InvocationTimeout)
	defer cancel()

	bodies := make([][]byte, len(batch))
	for i, d := range batch {
		bodies[i] = d.Body
	}

	err := c.handler.HandleBatch(ictx, bodies)
	if err == nil {
		for _, d := range batch {
			if ackErr := d.Ack(false); ackErr != nil {
				log.Printf("[%s] failed to ack delivery: %v", c.cfg.QueueName, ackErr)
			}
		}
		return
	}

	log.Printf("[%s] Error processing batch of %d: %v", c.cfg.QueueName, len(batch), err)

	for _, d := range batch {
		count := receiveCount(d)
		if shouldRedeliver(count, c.cfg.MaxReceiveCount) {
			if redErr := c.redeliver(ctx, pub, d, count+1); redErr != nil {
				log.Printf("[%s] failed to redeliver, requeueing original: %v", c.cfg.QueueName, redErr)
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
			continue
		}

		switch c.cfg.OnExhausted {
		case DeadLetter:
			// Broker-side DLX moves it to the dead-letter queue.
			d.Nack(false, false)
		case Drop:
			log.Printf("[%s] receive budget exhausted after %d, dropping message %s", c.cfg.QueueName, count, d.MessageId)
			d.Ack(false)
		}
	}
}

func (c *Consumer) redeliver(ctx context.Context, pub rawPublisher, d amqp.Delivery, nextCount int) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[ReceiveCountHeader] = int32(nextCount)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pub.PublishWithContext(pctx,
		"",
		c.cfg.QueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    d.MessageId,
			Headers:      headers,
			Body:         d.Body,
		})
}
