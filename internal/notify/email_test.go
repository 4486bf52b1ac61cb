package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSendGrid struct {
	status int
	err    error
	got    *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.got = email
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestNewSendGridSenderRequiresKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, nil))
}

func TestSendGridSenderSend(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	s := newSendGridSender(fake, SendGridConfig{FromEmail: "noreply@clinic.test"}, nil)

	err := s.Send(context.Background(), EmailMessage{To: "desk@clinic.test", Subject: "New appointment", Body: "hello"})
	require.NoError(t, err)
	require.NotNil(t, fake.got)
	assert.Equal(t, "Clinic Scheduler", fake.got.From.Name)
	assert.Equal(t, "noreply@clinic.test", fake.got.From.Address)
	assert.Equal(t, "New appointment", fake.got.Subject)
	require.Len(t, fake.got.Content, 2)
	assert.Equal(t, "hello", fake.got.Content[1].Value)
}

func TestSendGridSenderErrors(t *testing.T) {
	s := newSendGridSender(&fakeSendGrid{status: 401}, SendGridConfig{}, nil)
	assert.ErrorContains(t, s.Send(context.Background(), EmailMessage{To: "x@y"}), "status 401")

	s = newSendGridSender(&fakeSendGrid{err: errors.New("dial tcp")}, SendGridConfig{}, nil)
	assert.ErrorContains(t, s.Send(context.Background(), EmailMessage{To: "x@y"}), "dial tcp")

	var nilSender *SendGridSender
	assert.Error(t, nilSender.Send(context.Background(), EmailMessage{}))
}

type fakeSES struct {
	err error
	got *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	fake := &fakeSES{}
	s := newSESSender(fake, SESConfig{FromEmail: "noreply@clinic.test", FromName: "Front Desk"}, nil)

	require.NoError(t, s.Send(context.Background(), EmailMessage{To: "desk@clinic.test", Subject: "Hi", Body: "text only"}))
	require.NotNil(t, fake.got)
	assert.Equal(t, "Front Desk <noreply@clinic.test>", aws.ToString(fake.got.FromEmailAddress))
	assert.Equal(t, []string{"desk@clinic.test"}, fake.got.Destination.ToAddresses)
	assert.Equal(t, "text only", aws.ToString(fake.got.Content.Simple.Body.Text.Data))
	assert.Nil(t, fake.got.Content.Simple.Body.Html)
}

func TestSESSenderWrapsError(t *testing.T) {
	s := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{}, nil)
	err := s.Send(context.Background(), EmailMessage{To: "x@y"})
	assert.ErrorContains(t, err, "SES send failed")
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
