package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/clinic-scheduler/internal/archive"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildArchive returns the webhook payload archive, or nil when no bucket is set.
func BuildArchive(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || awsCfg == nil || cfg.PayloadArchiveBucket == "" {
		return nil
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		// LocalStack serves buckets on the path, not a subdomain.
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return archive.NewStore(client, cfg.PayloadArchiveBucket, logger)
}

// BuildSQSPublisher returns nil when EVENTS_QUEUE_URL is unset.
func BuildSQSPublisher(cfg *appconfig.Config, awsCfg *aws.Config) *events.SQSPublisher {
	if cfg == nil || awsCfg == nil || cfg.EventsQueueURL == "" {
		return nil
	}
	return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.EventsQueueURL)
}
