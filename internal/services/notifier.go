package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// BlockAlert describes a block written after too many failures
type BlockAlert struct {
	IPAddress string
	Country   string // ISO code, "" when unknown
	Failures  int
	Until     time.Time
}

// BlockNotifier is told when an address crosses the failure threshold
type BlockNotifier interface {
	NotifyBlocked(ctx context.Context, alert BlockAlert) error
}

// NoopBlockNotifier discards block alerts
type NoopBlockNotifier struct{}

func (NoopBlockNotifier) NotifyBlocked(context.Context, BlockAlert) error { return nil }

// SESClient is the subset of the SES API used for alerts
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESBlockNotifier emails block alerts using AWS SES
type SESBlockNotifier struct {
	sesClient   SESClient
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESBlockNotifier creates a notifier from the default AWS credential chain
func NewSESBlockNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*SESBlockNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESBlockNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddress, logger), nil
}

// NewSESBlockNotifierWithClient creates a notifier around an existing client
func NewSESBlockNotifierWithClient(client SESClient, fromAddress, toAddress string, logger *slog.Logger) *SESBlockNotifier {
	return &SESBlockNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}
}

// NotifyBlocked sends one alert email for a new block
func (n *SESBlockNotifier) NotifyBlocked(ctx context.Context, alert BlockAlert) error {
	untilText := alert.Until.UTC().Format(time.RFC1123)

	origin := alert.IPAddress
	if alert.Country != "" {
		origin += " (" + alert.Country + ")"
	}

	textBody := fmt.Sprintf(`Login gate: address blocked

The address %s made %d failed logins and is blocked until %s.

No action is needed unless this address belongs to one of your players.
This is an automated message.
`, origin, alert.Failures, untilText)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Login blocked for %s", alert.IPAddress)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send block alert: %w", err)
	}

	n.logger.Info("block alert sent",
		slog.String("ip_address", alert.IPAddress),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
