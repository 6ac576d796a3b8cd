package types

import (
	"encoding/json"
	"fmt"
	"time"
)

const ImageTypeAttribute = "imageType"

// MessageAttribute carries one typed attribute on a Notification. Filter
// policies match against these, never against the message body.
type MessageAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

// Notification is the envelope the fan-out topic delivers to its
// subscribers. Queue consumers receive this as the message body and must
// unwrap one level before the original object-storage records are visible.
type Notification struct {
	Type              string                      `json:"Type"`
	MessageID         string                      `json:"MessageId"`
	Message           string                      `json:"Message"`
	Timestamp         string                      `json:"Timestamp"`
	MessageAttributes map[string]MessageAttribute `json:"MessageAttributes,omitempty"`
}

// NewNotification wraps an S3 event into a topic envelope. The caller is
// responsible for attaching the imageType attribute before publishing.
func NewNotification(messageID string, event *S3Event) (*Notification, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal s3 event: %w", err)
	}
	return &Notification{
		Type:      "Notification",
		MessageID: messageID,
		Message:   string(body),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// SetAttribute attaches a string attribute used for subscription filtering.
func (n *Notification) SetAttribute(name, value string) {
	if n.MessageAttributes == nil {
		n.MessageAttributes = make(map[string]MessageAttribute)
	}
	n.MessageAttributes[name] = MessageAttribute{Type: "String", Value: value}
}

// Attribute returns the attribute value and whether it is present.
func (n *Notification) Attribute(name string) (string, bool) {
	attr, ok := n.MessageAttributes[name]
	return attr.Value, ok
}
