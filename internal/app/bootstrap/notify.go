package bootstrap

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/internal/archive"
	appconfig "github.com/wolfman30/vetchat/internal/config"
	"github.com/wolfman30/vetchat/internal/events"
	"github.com/wolfman30/vetchat/internal/notify"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// BuildEmailSender selects the email provider named by EMAIL_PROVIDER and
// reports which one was chosen.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" || strings.TrimSpace(cfg.SendGridFromEmail) == "" {
			logger.Warn("sendgrid selected but api key or from address missing; emails disabled")
			break
		}
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), "sendgrid"
	case "ses":
		if strings.TrimSpace(cfg.SendGridFromEmail) == "" {
			logger.Warn("ses selected but from address missing; emails disabled")
			break
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail:        cfg.SendGridFromEmail,
			FromName:         cfg.SendGridFromName,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger), "ses"
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildNotifier returns the booking notifier, or nil when no clinic inbox is
// configured.
func BuildNotifier(cfg *appconfig.Config, sender notify.EmailSender, loc *time.Location, logger *logging.Logger) *notify.Service {
	if cfg == nil {
		return nil
	}
	recipients := splitList(cfg.ClinicNotifyEmail)
	if len(recipients) == 0 {
		return nil
	}
	return notify.NewService(sender, recipients, loc, logger)
}

// BuildEventPublisher publishes appointment events to SQS when a queue is
// configured and to the log otherwise.
func BuildEventPublisher(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) appointments.EventPublisher {
	if cfg != nil && strings.TrimSpace(cfg.EventsQueueURL) != "" {
		return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL, logger)
	}
	return events.NewLogPublisher(logger)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// BuildArchiver returns the transcript archiver, or nil when no bucket is
// configured.
func BuildArchiver(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *archive.Archiver {
	if cfg == nil || cfg.ArchiveBucket == "" {
		return nil
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// LocalStack serves buckets by path rather than by host.
		o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
	})
	return archive.NewArchiver(archive.NewStore(client, cfg.ArchiveBucket, logger), logger)
}
