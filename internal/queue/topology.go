package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker topology. The primary queue dead-letters through a dedicated
// exchange so that messages past the receive budget land in the DLQ
// without a republish from the consumer.
const (
	TopicName          = "new-image-topic"
	PrimaryQueue       = "img-created-queue"
	DeadLetterQueue    = "dead-letter-queue"
	deadLetterExchange = "dead-letter-exchange"

	// ReceiveCountHeader tracks how many times a message has been
	// delivered to a consumer. Redrive republishes bump it by one.
	ReceiveCountHeader = "x-receive-count"
)

// DeclareTopology declares the queues and the dead-letter exchange. Safe
// to call from every process; declarations are idempotent.
func DeclareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(deadLetterExchange, "direct", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}

	_, err = ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", DeadLetterQueue, err)
	}

	// Broker-side dead-lettering keeps the original routing key, so the
	// DLQ binds on the primary queue's name.
	if err = ch.QueueBind(DeadLetterQueue, PrimaryQueue, deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", DeadLetterQueue, err)
	}

	_, err = ch.QueueDeclare(PrimaryQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": deadLetterExchange,
	})
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", PrimaryQueue, err)
	}
	return nil
}
