// Package bootstrap assembles the chat API from configuration. Both the
// long-running server and the Lambda entrypoint build their handler here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/vetchat/internal/api/router"
	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/internal/booking"
	"github.com/wolfman30/vetchat/internal/chat"
	appconfig "github.com/wolfman30/vetchat/internal/config"
	"github.com/wolfman30/vetchat/internal/observability/metrics"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// App is a fully wired API.
type App struct {
	Handler http.Handler
	Chat    *chat.Service

	stores   *Stores
	closeGen func() error
}

// Close releases stores and provider clients.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.closeGen != nil {
		errs = append(errs, a.closeGen())
	}
	if a.stores != nil {
		errs = append(errs, a.stores.Close(ctx))
	}
	return errors.Join(errs...)
}

// Build wires stores, generation, notifications and the HTTP router.
func Build(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(registry)

	stores, err := BuildStores(ctx, cfg, logger.Component("stores"))
	if err != nil {
		return nil, err
	}

	gen, closeGen, err := BuildGenerator(ctx, cfg, awsCfg, chatMetrics, logger.Component("assistant"))
	if err != nil {
		_ = stores.Close(ctx)
		return nil, err
	}

	loc := cfg.Location()
	publisher := BuildEventPublisher(cfg, awsCfg, logger.Component("events"))
	sender, provider := BuildEmailSender(cfg, awsCfg, logger.Component("notify"))

	deps := chat.Deps{
		Conversations: stores.Conversations,
		Appointments:  stores.Appointments,
		Machine:       booking.New(booking.WithLocation(loc)),
		Generator:     gen,
		Locker:        stores.Locker,
		Events:        publisher,
		Metrics:       chatMetrics,
		Logger:        logger.Component("chat"),
		IdleTTL:       cfg.BookingIdleTTL,
	}
	if notifier := BuildNotifier(cfg, sender, loc, logger.Component("notify")); notifier != nil {
		deps.Notifier = notifier
		logger.Info("booking notifications enabled", "provider", provider)
	}
	if archiver := BuildArchiver(cfg, awsCfg, logger.Component("archive")); archiver != nil {
		deps.Archiver = archiver
		logger.Info("transcript archive enabled", "bucket", cfg.ArchiveBucket)
	}
	svc := chat.NewService(deps)

	handler := router.New(&router.Config{
		Logger:             logger.Component("http"),
		Metrics:            chatMetrics,
		Chat:               chat.NewHandler(svc, cfg.CORSAllowedOrigins, logger.Component("chat")),
		Conversations:      chat.NewConversationsHandler(stores.Conversations, stores.Appointments, logger.Component("admin")),
		Appointments:       appointments.NewHandler(stores.Appointments, publisher, loc, logger.Component("admin")),
		AdminToken:         cfg.AdminToken,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Production:         cfg.IsProduction(),
		HealthChecks:       stores.HealthChecks,
	})
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set; admin endpoints are disabled")
	}

	return &App{Handler: handler, Chat: svc, stores: stores, closeGen: closeGen}, nil
}
