package handlers

import (
	"context"
	"fmt"
	"strings"

	queueErrors "github.com/imageops/eda-pipeline/internal/queue/errors"
	"github.com/imageops/eda-pipeline/internal/validate"
)

// EmailSender is what the rejection path needs from the mailer.
type EmailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// RejectionHandler consumes the dead-letter queue: topic-denied
// notifications and redriven primary-queue messages alike. Each entry
// produces one rejection email; no store write ever happens here.
type RejectionHandler struct {
	mailer EmailSender
	to     string
}

func NewRejectionHandler(mailer EmailSender, to string) *RejectionHandler {
	return &RejectionHandler{mailer: mailer, to: to}
}

func (h *RejectionHandler) HandleBatch(ctx context.Context, bodies [][]byte) error {
	for _, body := range bodies {
		subject, content := rejectionContent(body)
		if err := h.mailer.Send(ctx, h.to, subject, content); err != nil {
			return fmt.Errorf("%w: %v", queueErrors.ErrNotificationDelivery, err)
		}
	}
	return nil
}

// rejectionContent builds the email for one dead-letter entry. Entries
// here already failed normal processing, so unwrapping is tolerant: a
// body that cannot be parsed still gets a notification naming the raw
// payload.
func rejectionContent(body []byte) (string, string) {
	event, err := unwrapEnvelope(body)
	if err != nil || len(event.Records) == 0 {
		return "Image rejected", fmt.Sprintf("An uploaded image could not be processed.\nRaw notification: %s", truncate(string(body), 512))
	}

	var lines []string
	for _, rec := range event.Records {
		lines = append(lines, fmt.Sprintf("Your upload s3://%s/%s was rejected: %s",
			rec.S3.Bucket.Name, rec.S3.Object.Key, rejectionReason(rec.S3.Object.Key)))
	}
	return "Image rejected", strings.Join(lines, "\n")
}

func rejectionReason(rawKey string) string {
	out := validate.CheckKey(rawKey)
	if out.Status == validate.Rejected {
		return out.Reason.Error()
	}
	// A valid key means we got here through retry exhaustion, not
	// through the deny-list.
	return "processing failed after the retry budget was exhausted"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
