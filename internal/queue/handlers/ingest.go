// Package handlers holds the batch handlers behind the pipeline's queues.
package handlers

import (
	"context"
	"fmt"
	"log"

	queueErrors "github.com/imageops/eda-pipeline/internal/queue/errors"
	"github.com/imageops/eda-pipeline/internal/types"
	"github.com/imageops/eda-pipeline/internal/utils"
	"github.com/imageops/eda-pipeline/internal/validate"
)

// ImageStore persists one record per accepted image. PutImage is an
// unconditional upsert keyed by FileName.
type ImageStore interface {
	PutImage(ctx context.Context, rec types.ImageRecord) error
}

// SeenFilter is an optional fast path for keys already persisted. It is
// never load-bearing: a miss or an error always falls through to the
// upsert.
type SeenFilter interface {
	IsNew(ctx context.Context, fileName string) (bool, error)
}

// IngestHandler validates and persists accepted notifications from the
// primary queue. Failure reporting is batch-level: any parse, validation
// or store error fails the whole invocation and every delivery in the
// batch goes around again.
type IngestHandler struct {
	store ImageStore
	seen  SeenFilter
}

// NewIngestHandler builds the handler. seen may be nil.
func NewIngestHandler(store ImageStore, seen SeenFilter) *IngestHandler {
	return &IngestHandler{store: store, seen: seen}
}

func (h *IngestHandler) HandleBatch(ctx context.Context, bodies [][]byte) error {
	for _, body := range bodies {
		event, err := unwrapEnvelope(body)
		if err != nil {
			return err
		}

		if len(event.Records) == 0 {
			log.Println("error: no records")
			continue
		}

		for _, rec := range event.Records {
			if err := h.ingestRecord(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *IngestHandler) ingestRecord(ctx context.Context, rec types.S3EventRecord) error {
	out := validate.CheckKey(rec.S3.Object.Key)
	if out.Status == validate.Rejected {
		// Redundant with the topic-level filter, enforced again here.
		return out.Reason
	}

	if h.seen != nil {
		if isNew, err := h.seen.IsNew(ctx, out.FileName); err != nil {
			log.Printf("seen-filter error for %s (continuing): %v", out.FileName, err)
		} else if !isNew {
			log.Printf("skipping %s, already persisted", out.FileName)
			return nil
		}
	}

	if err := h.store.PutImage(ctx, types.ImageRecord{FileName: out.FileName}); err != nil {
		return fmt.Errorf("%w: %s: %v", queueErrors.ErrStoreWrite, out.FileName, err)
	}
	log.Printf("persisted image record %q", out.FileName)
	return nil
}

// unwrapEnvelope peels the topic delivery wrapper off a queue message
// body and parses the embedded object-storage event.
func unwrapEnvelope(body []byte) (*types.S3Event, error) {
	var n types.Notification
	if err := utils.ParseJSON(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", queueErrors.ErrMalformedEnvelope, err)
	}
	if n.Message == "" {
		return nil, fmt.Errorf("%w: empty Message field", queueErrors.ErrMalformedEnvelope)
	}

	var event types.S3Event
	if err := utils.ParseJSON([]byte(n.Message), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", queueErrors.ErrMalformedEnvelope, err)
	}
	return &event, nil
}
