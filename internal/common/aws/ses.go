package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"team-notifier/internal/messaging"
)

const SESChannel = "ses"

// SESService is implemented by *ses.Client.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESConfig struct {
	Region    string
	FromEmail string
	Subject   string
}

// SESClient sends notification texts as plain text e-mail.
type SESClient struct {
	client SESService
	cfg    SESConfig
}

func NewSESClient(ctx context.Context, cfg SESConfig) (*SESClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESClientWith(ses.NewFromConfig(awsCfg), cfg), nil
}

func NewSESClientWith(client SESService, cfg SESConfig) *SESClient {
	if cfg.Subject == "" {
		cfg.Subject = "Team event notification"
	}
	return &SESClient{client: client, cfg: cfg}
}

func (s *SESClient) Channel() string { return SESChannel }

func (s *SESClient) Send(ctx context.Context, to, body string) (messaging.Receipt, error) {
	if to == "" {
		return messaging.Receipt{}, errors.New("ses: empty e-mail address")
	}
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(s.cfg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.cfg.FromEmail),
	})
	if err != nil {
		return messaging.Receipt{}, fmt.Errorf("ses send email: %w", err)
	}
	return messaging.Receipt{ProviderID: aws.ToString(out.MessageId)}, nil
}
