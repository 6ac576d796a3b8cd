package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	queueErrors "github.com/imageops/eda-pipeline/internal/queue/errors"
)

type memoryMailer struct {
	sent []string
	to   []string
	err  error
}

func (m *memoryMailer) Send(_ context.Context, to string, _ string, body string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.sent = append(m.sent, body)
	return nil
}

func TestRejectionMailsDeniedUpload(t *testing.T) {
	mailer := &memoryMailer{}
	h := NewRejectionHandler(mailer, "user@example.com")

	err := h.HandleBatch(context.Background(), [][]byte{envelopeFor(t, "doc.pdf")})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "user@example.com", mailer.to[0])
	assert.Contains(t, mailer.sent[0], "s3://imgs/doc.pdf")
	assert.Contains(t, mailer.sent[0], "unsupported image type")
}

func TestRejectionMailsRetryExhaustedUpload(t *testing.T) {
	mailer := &memoryMailer{}
	h := NewRejectionHandler(mailer, "user@example.com")

	// A valid key lands here only through redrive exhaustion.
	err := h.HandleBatch(context.Background(), [][]byte{envelopeFor(t, "cat.jpeg")})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0], "retry budget")
}

func TestRejectionOneMailPerEntry(t *testing.T) {
	mailer := &memoryMailer{}
	h := NewRejectionHandler(mailer, "user@example.com")

	err := h.HandleBatch(context.Background(), [][]byte{
		envelopeFor(t, "doc.pdf"),
		envelopeFor(t, "noext"),
		envelopeFor(t, "anim.gif"),
	})
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 3)
}

func TestRejectionToleratesUnparseableBody(t *testing.T) {
	mailer := &memoryMailer{}
	h := NewRejectionHandler(mailer, "user@example.com")

	err := h.HandleBatch(context.Background(), [][]byte{[]byte("garbage body")})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0], "garbage body")
}

func TestRejectionDeliveryFailureFailsBatch(t *testing.T) {
	h := NewRejectionHandler(&memoryMailer{err: errors.New("ses unavailable")}, "user@example.com")

	err := h.HandleBatch(context.Background(), [][]byte{envelopeFor(t, "doc.pdf")})
	assert.ErrorIs(t, err, queueErrors.ErrNotificationDelivery)
}
