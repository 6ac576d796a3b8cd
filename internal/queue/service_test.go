package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acked    []uint64
	nacked   []uint64
	requeued []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	if requeue {
		f.requeued = append(f.requeued, tag)
	} else {
		f.nacked = append(f.nacked, tag)
	}
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type fakePublisher struct {
	published []amqp.Publishing
	queues    []string
	err       error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, _ string, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.queues = append(f.queues, key)
	f.published = append(f.published, msg)
	return nil
}

type stubHandler struct {
	err     error
	batches [][][]byte
}

func (s *stubHandler) HandleBatch(_ context.Context, bodies [][]byte) error {
	s.batches = append(s.batches, bodies)
	return s.err
}

func delivery(ack *fakeAcknowledger, tag uint64, count int) amqp.Delivery {
	d := amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		Body:         []byte(`{"Type":"Notification"}`),
		ContentType:  "application/json",
	}
	if count > 1 {
		d.Headers = amqp.Table{ReceiveCountHeader: int32(count)}
	}
	return d
}

func newTestConsumer(cfg ConsumerConfig, h BatchHandler) *Consumer {
	cfg.QueueName = PrimaryQueue
	return NewConsumer("amqp://unused", cfg, h)
}

func TestReceiveCount(t *testing.T) {
	assert.Equal(t, 1, receiveCount(amqp.Delivery{}))
	assert.Equal(t, 3, receiveCount(amqp.Delivery{Headers: amqp.Table{ReceiveCountHeader: int32(3)}}))
	assert.Equal(t, 4, receiveCount(amqp.Delivery{Headers: amqp.Table{ReceiveCountHeader: int64(4)}}))
	assert.Equal(t, 1, receiveCount(amqp.Delivery{Headers: amqp.Table{ReceiveCountHeader: "junk"}}))
}

func TestDispatchAcksOnSuccess(t *testing.T) {
	ack := &fakeAcknowledger{}
	pub := &fakePublisher{}
	h := &stubHandler{}
	c := newTestConsumer(ConsumerConfig{MaxReceiveCount: 3}, h)

	c.dispatch(context.Background(), pub, []amqp.Delivery{
		delivery(ack, 1, 1),
		delivery(ack, 2, 1),
	})

	assert.Equal(t, []uint64{1, 2}, ack.acked)
	assert.Empty(t, ack.nacked)
	assert.Empty(t, pub.published)
	require.Len(t, h.batches, 1)
	assert.Len(t, h.batches[0], 2)
}

func TestDispatchRedeliversWholeBatchOnFailure(t *testing.T) {
	ack := &fakeAcknowledger{}
	pub := &fakePublisher{}
	h := &stubHandler{err: errors.New("store write failed")}
	c := newTestConsumer(ConsumerConfig{MaxReceiveCount: 3}, h)

	c.dispatch(context.Background(), pub, []amqp.Delivery{
		delivery(ack, 1, 1),
		delivery(ack, 2, 1),
	})

	// All-or-nothing: both deliveries go around again, with the count bumped.
	require.Len(t, pub.published, 2)
	assert.Equal(t, []string{PrimaryQueue, PrimaryQueue}, pub.queues)
	for _, msg := range pub.published {
		assert.Equal(t, int32(2), msg.Headers[ReceiveCountHeader])
	}
	assert.Equal(t, []uint64{1, 2}, ack.acked)
	assert.Empty(t, ack.nacked)
}

func TestDispatchDeadLettersPastBudget(t *testing.T) {
	ack := &fakeAcknowledger{}
	pub := &fakePublisher{}
	h := &stubHandler{err: errors.New("still failing")}
	c := newTestConsumer(ConsumerConfig{MaxReceiveCount: 2, OnExhausted: DeadLetter}, h)

	c.dispatch(context.Background(), pub, []amqp.Delivery{delivery(ack, 7, 2)})

	// Budget spent: nack without requeue, the broker's DLX takes it.
	assert.Equal(t, []uint64{7}, ack.nacked)
	assert.Empty(t, ack.acked)
	assert.Empty(t, pub.published)
}

func TestDispatchDropsPastBudget(t *testing.T) {
	ack := &fakeAcknowledger{}
	pub := &fakePublisher{}
	h := &stubHandler{err: errors.New("mailer down")}
	c := newTestConsumer(ConsumerConfig{MaxReceiveCount: 1, OnExhausted: Drop}, h)

	c.dispatch(context.Background(), pub, []amqp.Delivery{delivery(ack, 9, 1)})

	assert.Equal(t, []uint64{9}, ack.acked)
	assert.Empty(t, ack.nacked)
	assert.Empty(t, pub.published)
}

func TestDispatchRequeuesWhenRedeliverFails(t *testing.T) {
	ack := &fakeAcknowledger{}
	pub := &fakePublisher{err: errors.New("channel closed")}
	h := &stubHandler{err: errors.New("boom")}
	c := newTestConsumer(ConsumerConfig{MaxReceiveCount: 3}, h)

	c.dispatch(context.Background(), pub, []amqp.Delivery{delivery(ack, 4, 1)})

	// Original stays on the queue rather than being lost.
	assert.Equal(t, []uint64{4}, ack.requeued)
	assert.Empty(t, ack.acked)
}

func TestCollectBatchFillsToSize(t *testing.T) {
	msgs := make(chan amqp.Delivery, 10)
	for i := 0; i < 5; i++ {
		msgs <- amqp.Delivery{DeliveryTag: uint64(i)}
	}

	batch, open := collectBatch(context.Background(), msgs, 3, time.Second)
	assert.True(t, open)
	assert.Len(t, batch, 3)
}

func TestCollectBatchFlushesPartialOnWindow(t *testing.T) {
	msgs := make(chan amqp.Delivery, 10)
	msgs <- amqp.Delivery{DeliveryTag: 1}
	msgs <- amqp.Delivery{DeliveryTag: 2}

	start := time.Now()
	batch, open := collectBatch(context.Background(), msgs, 5, 50*time.Millisecond)
	assert.True(t, open)
	assert.Len(t, batch, 2)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestCollectBatchReportsClosedChannel(t *testing.T) {
	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{DeliveryTag: 1}
	close(msgs)

	batch, open := collectBatch(context.Background(), msgs, 5, 50*time.Millisecond)
	assert.False(t, open)
	assert.Len(t, batch, 1)
}
