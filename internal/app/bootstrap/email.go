package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/tipulhub/tipul-server/internal/config"
	"github.com/tipulhub/tipul-server/internal/notify"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// BuildEmailSender selects the configured email backend. A nil return
// means email is disabled; callers treat that as a silent no-op.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "ses":
		if cfg.SESFromEmail == "" {
			logger.Warn("SES selected but SES_FROM_EMAIL empty; email disabled")
			return nil
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	default:
		logger.Warn("unknown email provider; email disabled", "provider", cfg.EmailProvider)
		return nil
	}
}
