// Package aws sends notification texts through Amazon SNS (SMS) and SES (e-mail).
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"team-notifier/internal/messaging"
)

const SNSChannel = "sns"

// SNSService is implemented by *sns.Client.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSConfig struct {
	Region string
	// SenderID is shown as the sender where carriers support it.
	SenderID string
	// SMSType is Transactional or Promotional.
	SMSType string
}

// SNSClient publishes SMS directly to phone numbers.
type SNSClient struct {
	client SNSService
	cfg    SNSConfig
}

func NewSNSClient(ctx context.Context, cfg SNSConfig) (*SNSClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSNSClientWith(sns.NewFromConfig(awsCfg), cfg), nil
}

func NewSNSClientWith(client SNSService, cfg SNSConfig) *SNSClient {
	return &SNSClient{client: client, cfg: cfg}
}

func (s *SNSClient) Channel() string { return SNSChannel }

func (s *SNSClient) Send(ctx context.Context, to, body string) (messaging.Receipt, error) {
	if to == "" {
		return messaging.Receipt{}, errors.New("sns: empty phone number")
	}
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(body),
		MessageAttributes: s.attributes(),
	})
	if err != nil {
		return messaging.Receipt{}, fmt.Errorf("sns publish: %w", err)
	}
	return messaging.Receipt{ProviderID: aws.ToString(out.MessageId)}, nil
}

func (s *SNSClient) attributes() map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{}
	if s.cfg.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.cfg.SenderID),
		}
	}
	if s.cfg.SMSType != "" {
		attrs["AWS.SNS.SMS.SMSType"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.cfg.SMSType),
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
