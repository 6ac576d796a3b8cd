package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/imageops/eda-pipeline/internal/types"
	"github.com/imageops/eda-pipeline/internal/utils"
)

// Sender is what the subscriber needs from a mailer.
type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// SuccessSubscriber returns the topic's direct function subscriber. It
// fires on every publication, before and independent of ingestion; there
// is no queue in front of it, so a delivery failure here is terminal.
func SuccessSubscriber(sender Sender, to string) func(ctx context.Context, n *types.Notification) error {
	return func(ctx context.Context, n *types.Notification) error {
		subject, body := successContent(n)
		if err := sender.Send(ctx, to, subject, body); err != nil {
			return fmt.Errorf("success mail for %s: %w", n.MessageID, err)
		}
		return nil
	}
}

func successContent(n *types.Notification) (string, string) {
	var event types.S3Event
	if err := utils.ParseJSON([]byte(n.Message), &event); err != nil || len(event.Records) == 0 {
		log.Printf("success mail: could not read records from %s", n.MessageID)
		return "New image received", "An image upload notification was received."
	}

	var lines []string
	for _, rec := range event.Records {
		lines = append(lines, fmt.Sprintf("We received your image. Its URL is s3://%s/%s", rec.S3.Bucket.Name, rec.S3.Object.Key))
	}
	return "New image received", strings.Join(lines, "\n")
}
