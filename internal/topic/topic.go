// Package topic implements the fan-out node of the pipeline: one inbound
// notification is copied to every subscriber whose filter policy matches.
package topic

import (
	"context"
	"log"

	"github.com/imageops/eda-pipeline/internal/types"
)

// QueuePublisher delivers one notification copy to a named queue.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, n *types.Notification) error
}

// FuncSubscriber is a direct subscriber invoked inline on every publish.
// There is no queue in front of it, so a failure here is terminal.
type FuncSubscriber func(ctx context.Context, n *types.Notification) error

type queueSubscription struct {
	queueName string
	policy    *FilterPolicy
}

// Topic fans out notifications to queue and function subscribers.
// Delivery to each subscriber is independent: a failure on one leg is
// logged and does not affect the others.
type Topic struct {
	name      string
	publisher QueuePublisher
	queueSubs []queueSubscription
	funcSubs  []FuncSubscriber
}

func New(name string, publisher QueuePublisher) *Topic {
	return &Topic{name: name, publisher: publisher}
}

// SubscribeQueue registers a queue subscriber. A nil policy receives
// every notification.
func (t *Topic) SubscribeQueue(queueName string, policy *FilterPolicy) {
	t.queueSubs = append(t.queueSubs, queueSubscription{queueName: queueName, policy: policy})
}

// SubscribeFunc registers an unfiltered direct subscriber.
func (t *Topic) SubscribeFunc(fn FuncSubscriber) {
	t.funcSubs = append(t.funcSubs, fn)
}

// Publish evaluates every subscription's filter policy against the
// notification's attributes and delivers an independent copy to each
// match. Publish is fire-and-forget: per-leg failures are logged, never
// propagated to the caller.
func (t *Topic) Publish(ctx context.Context, n *types.Notification) {
	for _, sub := range t.queueSubs {
		if !sub.policy.Matches(n) {
			continue
		}
		copied := *n
		if err := t.publisher.Publish(ctx, sub.queueName, &copied); err != nil {
			log.Printf("[%s] failed to deliver %s to queue %s: %v", t.name, n.MessageID, sub.queueName, err)
		}
	}

	for _, fn := range t.funcSubs {
		copied := *n
		if err := fn(ctx, &copied); err != nil {
			log.Printf("[%s] direct subscriber failed for %s: %v", t.name, n.MessageID, err)
		}
	}
}
