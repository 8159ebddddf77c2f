package sms

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessages struct {
	got *twilioApi.CreateMessageParams
	err error
}

func (f *fakeMessages) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSenderCreatesMessage(t *testing.T) {
	fake := &fakeMessages{}
	s := &TwilioSender{From: "+15005550006", Messages: fake}

	require.NoError(t, s.Send(context.Background(), "+919800000001", "Your OTP code is 123456"))
	require.NotNil(t, fake.got)
	assert.Equal(t, "+919800000001", *fake.got.To)
	assert.Equal(t, "+15005550006", *fake.got.From)
	assert.Equal(t, "Your OTP code is 123456", *fake.got.Body)
}

func TestTwilioSenderReportsAPIError(t *testing.T) {
	fake := &fakeMessages{err: &client.TwilioRestError{
		Code:    21211,
		Message: "The 'To' number is not a valid phone number.",
		Status:  400,
	}}
	s := &TwilioSender{From: "+15005550006", Messages: fake}

	err := s.Send(context.Background(), "12", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
	assert.Contains(t, err.Error(), "400")
}

func TestTwilioSenderHonoursCancelledContext(t *testing.T) {
	fake := &fakeMessages{}
	s := &TwilioSender{From: "+15005550006", Messages: fake}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "+919800000001", "hi"), context.Canceled)
	assert.Nil(t, fake.got)
}

func TestNewTwilioSenderUsesRestClient(t *testing.T) {
	s := NewTwilioSender("AC123", "token", "+15005550006")
	assert.Equal(t, "+15005550006", s.From)
	assert.NotNil(t, s.Messages)
}

func TestLogSenderKeepsCodeOutOfInfoLog(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	level := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(level)

	require.NoError(t, LogSender{}.Send(context.Background(), "+919800000001", "Your OTP code is 482913"))

	require.NotEmpty(t, hook.AllEntries())
	for _, e := range hook.AllEntries() {
		assert.NotContains(t, e.Message, "482913")
	}
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "+919800000001")
}
