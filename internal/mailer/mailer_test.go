package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imageops/eda-pipeline/internal/types"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{}, nil
}

func TestMailerSend(t *testing.T) {
	ses := &fakeSES{}
	m := NewMailer(ses, "pipeline@example.com")

	err := m.Send(context.Background(), "user@example.com", "New image received", "hello")
	require.NoError(t, err)

	require.Len(t, ses.inputs, 1)
	in := ses.inputs[0]
	assert.Equal(t, "pipeline@example.com", *in.FromEmailAddress)
	assert.Equal(t, []string{"user@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "New image received", *in.Content.Simple.Subject.Data)
	assert.Equal(t, "hello", *in.Content.Simple.Body.Text.Data)
}

func TestMailerSendFailure(t *testing.T) {
	m := NewMailer(&fakeSES{err: errors.New("ses throttled")}, "pipeline@example.com")
	err := m.Send(context.Background(), "user@example.com", "s", "b")
	assert.Error(t, err)
}

type recordingSender struct {
	subjects []string
	bodies   []string
	err      error
}

func (r *recordingSender) Send(_ context.Context, _, subject, body string) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, body)
	return nil
}

func TestSuccessSubscriberMailsEveryPublication(t *testing.T) {
	sender := &recordingSender{}
	sub := SuccessSubscriber(sender, "user@example.com")

	event := &types.S3Event{Records: []types.S3EventRecord{
		{S3: types.S3Data{Bucket: types.S3BucketData{Name: "imgs"}, Object: types.S3ObjectData{Key: "cat.jpeg"}}},
	}}
	n, err := types.NewNotification("m1", event)
	require.NoError(t, err)

	require.NoError(t, sub(context.Background(), n))
	require.Len(t, sender.bodies, 1)
	assert.Contains(t, sender.bodies[0], "s3://imgs/cat.jpeg")
}

func TestSuccessSubscriberPropagatesDeliveryFailure(t *testing.T) {
	sub := SuccessSubscriber(&recordingSender{err: errors.New("smtp down")}, "user@example.com")
	n, err := types.NewNotification("m1", &types.S3Event{})
	require.NoError(t, err)
	assert.Error(t, sub(context.Background(), n))
}
