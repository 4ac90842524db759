// Package twilio sends notification texts as SMS through Twilio.
package twilio

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"team-notifier/internal/messaging"
)

const Channel = "twilio"

// MessageAPI is the part of the Twilio REST client the sender needs.
type MessageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type Sender struct {
	api  MessageAPI
	from string
}

func NewSender(cfg Config) (*Sender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio: account sid and auth token are required")
	}
	if cfg.FromNumber == "" {
		return nil, errors.New("twilio: from number is required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewSenderWith(client.Api, cfg.FromNumber), nil
}

func NewSenderWith(api MessageAPI, from string) *Sender {
	return &Sender{api: api, from: from}
}

func (s *Sender) Channel() string { return Channel }

// Send creates one outbound message. The Twilio client is not context aware,
// so cancellation is only honoured before the request starts.
func (s *Sender) Send(ctx context.Context, to, body string) (messaging.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return messaging.Receipt{}, err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return messaging.Receipt{}, fmt.Errorf("twilio create message: %w", err)
	}

	var receipt messaging.Receipt
	if msg != nil && msg.Sid != nil {
		receipt.ProviderID = *msg.Sid
	}
	return receipt, nil
}
