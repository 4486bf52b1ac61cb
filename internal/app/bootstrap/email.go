package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildEmailSender resolves EMAIL_PROVIDER. "auto" prefers SendGrid when an
// API key is present, then SES when a sender address and AWS config exist.
// Anything unconfigured falls back to the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}

	sendgrid := func() notify.EmailSender {
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	ses := func() notify.EmailSender {
		if awsCfg == nil || cfg.SESFromEmail == "" {
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if s := sendgrid(); s != nil {
			return s, "sendgrid"
		}
		logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is empty; using stub")
	case "ses":
		if s := ses(); s != nil {
			return s, "ses"
		}
		logger.Warn("EMAIL_PROVIDER=ses but SES is not configured; using stub")
	case "stub":
	default:
		if s := sendgrid(); s != nil {
			return s, "sendgrid"
		}
		if s := ses(); s != nil {
			return s, "ses"
		}
	}
	return notify.NewStubEmailSender(logger), "stub"
}
