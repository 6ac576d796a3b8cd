package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// ExhaustMode is what a consumer does with a message once its receive
// budget is spent.
type ExhaustMode int

const (
	// DeadLetter nacks without requeue so the broker moves the message
	// through the queue's dead-letter exchange. Used by the primary queue.
	DeadLetter ExhaustMode = iota
	// Drop acks the message away with a logged error. Used by the DLQ
	// itself, which has nowhere further to redrive.
	Drop
)

// receiveCount reads the redrive counter from a delivery's headers. A
// message that has never been redriven counts as received once.
func receiveCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 1
	}
	switch v := d.Headers[ReceiveCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 1
	}
}

// shouldRedeliver reports whether a failed delivery still has budget
// left for another attempt on its own queue.
func shouldRedeliver(count, maxReceiveCount int) bool {
	return count < maxReceiveCount
}
