// Package watcher bridges object storage to the fan-out topic: it polls
// a bucket and publishes one object-created notification per new key.
package watcher

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imageops/eda-pipeline/internal/types"
	"github.com/imageops/eda-pipeline/internal/validate"
)

// ObjectLister is the slice of the S3 service the watcher needs.
type ObjectLister interface {
	BucketName() string
	ListKeys(ctx context.Context) ([]string, error)
}

// TopicPublisher fans a notification out; the topic satisfies this.
type TopicPublisher interface {
	Publish(ctx context.Context, n *types.Notification)
}

type Watcher struct {
	lister   ObjectLister
	topic    TopicPublisher
	interval time.Duration
	seen     map[string]bool
}

func NewWatcher(lister ObjectLister, topic TopicPublisher, interval time.Duration) *Watcher {
	return &Watcher{
		lister:   lister,
		topic:    topic,
		interval: interval,
		seen:     make(map[string]bool),
	}
}

// Run polls until the context is cancelled. The first poll announces
// everything already in the bucket.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Poll(ctx); err != nil {
			log.Printf("[watcher] poll failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("[watcher] Shutting down...")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll lists the bucket and publishes a classified notification for
// every key not announced before.
func (w *Watcher) Poll(ctx context.Context) error {
	keys, err := w.lister.ListKeys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if w.seen[key] {
			continue
		}
		w.seen[key] = true
		w.announce(ctx, key)
	}
	return nil
}

func (w *Watcher) announce(ctx context.Context, key string) {
	event := &types.S3Event{Records: []types.S3EventRecord{{
		EventSource: "aws:s3",
		EventName:   "ObjectCreated:Put",
		EventTime:   time.Now().UTC().Format(time.RFC3339),
		S3: types.S3Data{
			Bucket: types.S3BucketData{Name: w.lister.BucketName()},
			Object: types.S3ObjectData{Key: encodeKey(key)},
		},
	}}}

	n, err := types.NewNotification(uuid.NewString(), event)
	if err != nil {
		log.Printf("[watcher] failed to build notification for %s: %v", key, err)
		return
	}

	// The raw object-created payload never carries a type; the attribute
	// the filter policies match on is derived here, at the publish
	// boundary. A key with no suffix gets no attribute at all.
	if attr := validate.AttributeFor(event.Records[0].S3.Object.Key); attr != "" {
		n.SetAttribute(types.ImageTypeAttribute, attr)
	}

	log.Printf("[watcher] announcing new object %q", key)
	w.topic.Publish(ctx, n)
}

// encodeKey reproduces the notification source's key encoding: percent
// escaping per path segment, spaces as "+".
func encodeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.QueryEscape(seg)
	}
	return strings.Join(segments, "/")
}
