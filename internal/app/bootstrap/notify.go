package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/vitrineapp/vitrine-ai-platform/internal/config"
	"github.com/vitrineapp/vitrine-ai-platform/internal/notify"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// BuildEmailSender picks the booking dispatch provider and reports the
// choice: the provider named by config, SendGrid when running on auto with a
// key present, the logging stub otherwise. The reason string explains any
// fallback. The stub keeps the booking flow complete in development; nothing
// leaves the process.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub", "missing config"
	}

	sgCfg := notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
	}
	sesCfg := notify.SESConfig{
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(sgCfg, logger); sender != nil {
			return sender, "sendgrid", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "sendgrid selected but api key missing"
	case "ses":
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), sesCfg, logger), "ses", ""
	case "stub":
		return notify.NewStubEmailSender(logger), "stub", ""
	}

	if sender := notify.NewSendGridSender(sgCfg, logger); sender != nil {
		return sender, "sendgrid", ""
	}
	return notify.NewStubEmailSender(logger), "stub", "no email provider configured"
}
