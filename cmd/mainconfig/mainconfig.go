package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so every binary shares the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	// S3, SQS and SES all honour BaseEndpoint, so one override points the
	// whole stack at LocalStack.
	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}
	return awsCfg, nil
}

// LoadWebhookAWSConfig returns the config the API and webhook Lambda need for
// payload archiving. It is nil when no archive bucket is configured or the SDK
// cannot be set up, in which case archiving is off.
func LoadWebhookAWSConfig(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *aws.Config {
	if cfg.PayloadArchiveBucket == "" {
		return nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("failed to load AWS config; payload archive disabled", "error", err)
		return nil
	}
	return &awsCfg
}
