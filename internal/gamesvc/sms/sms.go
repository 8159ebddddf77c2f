// Package sms delivers one-time codes to players' phones.
package sms

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// LogSender drops messages, noting only the recipient. It is used when no SMS
// gateway is configured; the message body is logged at debug level.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, body string) error {
	log.Warnf("[sms] no gateway configured, message to %s not sent", to)
	log.Debugf("[sms] suppressed message to %s: %s", to, body)
	return nil
}

// MessageCreator is the part of the Twilio REST API the sender uses.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends messages through Twilio.
type TwilioSender struct {
	From     string
	Messages MessageCreator
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{From: from, Messages: c.Api}
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.From)
	params.SetBody(body)

	msg, err := s.Messages.CreateMessage(params)
	if err != nil {
		var apiErr *client.TwilioRestError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("twilio: %d %s (code %d)", apiErr.Status, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("twilio request: %w", err)
	}

	sid := ""
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	log.Infof("[sms] message %s sent to %s", sid, to)
	return nil
}
