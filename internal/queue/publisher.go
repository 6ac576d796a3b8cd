package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/imageops/eda-pipeline/internal/types"
	"github.com/imageops/eda-pipeline/internal/utils"
)

// Publisher delivers notification envelopes to queues over one AMQP
// channel. It satisfies the topic's QueuePublisher contract.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish serializes the notification and sends it to the named queue as
// a persistent message. The imageType attribute travels inside the
// envelope body, so queue consumers see the same attributes the filter
// policies were evaluated against.
func (p *Publisher) Publish(ctx context.Context, queueName string, n *types.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := utils.SerializeJSON(n)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.MessageID,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}
