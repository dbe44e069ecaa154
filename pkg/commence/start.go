package commence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flaboy/aira-donate/pkg/api"
	"github.com/flaboy/aira-donate/pkg/config"
	"github.com/flaboy/aira-donate/pkg/database"
	"github.com/flaboy/aira-donate/pkg/events"
	"github.com/flaboy/aira-donate/pkg/extensions/payment"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/razorpay"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	_ "github.com/flaboy/aira-donate/pkg/models"
	"github.com/flaboy/aira-donate/pkg/serviceaction"
	"github.com/flaboy/aira-donate/pkg/store"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App holds the wired services of one process.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Donations *store.DonationStore
	Payments  *payment.PaymentManager
	Events    *events.Dispatcher
	Actions   *serviceaction.Engine

	redis *redis.Client
}

// Start connects the database and builds the payment services.
func Start(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, db)
}

// Build wires the services on an open database.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB) (*App, error) {
	ids, err := utils.NewIDCodec(cfg.Donation.HashIDSalt)
	if err != nil {
		return nil, fmt.Errorf("donation id codec: %w", err)
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		Donations: store.NewDonationStore(db),
		Events:    events.NewDispatcher(),
	}

	// 启动服务组件
	gateway := razorpay.New(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Timeout)
	slog.Info("[Commence] Payment channel ready", "channel", gateway.GetChannelName())

	app.Payments = payment.NewPaymentManager(payment.ManagerOptions{
		Donations:  app.Donations,
		Plans:      payment.NewPlanResolver(gateway, cfg.Donation.Plans, app.planCache(ctx), cfg.Donation.MinSIPAmount, cfg.Donation.Currency),
		Intents:    payment.NewIntentBuilder(gateway, cfg.Donation.Currency),
		Verifier:   payment.NewVerifier(gateway, cfg.Razorpay.KeySecret),
		IDs:        ids,
		Events:     app.Events,
		PendingTTL: cfg.Donation.PendingTTL,
	})

	if err := app.registerEventSinks(ctx); err != nil {
		return nil, err
	}

	app.Actions = serviceaction.NewEngine(
		serviceaction.NewSweepExecutor(app.Payments),
		serviceaction.NewExportExecutor(app.Donations, ids.EncodeDonationID),
	)
	return app, nil
}

// 注册业务系统的事件处理器
func (a *App) RegisterEventHandler(handler events.EventHandler) {
	a.Events.Register(handler)
}

func (a *App) Server() *api.Server {
	if a.Config.Server.AdminToken == "" {
		slog.Warn("[Commence] server.admin_token not set, donation listing and export are closed")
	}
	return api.NewServer(a.Payments, a.Donations, api.Options{
		LegacyPrefix:   a.Config.Server.LegacyPrefix,
		WebhookSecret:  a.Config.Razorpay.WebhookSecret,
		AdminToken:     a.Config.Server.AdminToken,
		RequestTimeout: a.Config.Database.Timeout + a.Config.Razorpay.Timeout,
		Health:         a.ping,
	})
}

// RunSweeper expires abandoned checkouts every interval until ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Actions.Execute(ctx, serviceaction.ActionSweepAbandoned, nil); err != nil {
				slog.Error("[Commence] Sweep failed", "error", err)
			}
		}
	}
}

func (a *App) Close() error {
	if a.redis != nil {
		a.redis.Close()
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *App) ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// planCache shares custom plans through redis when configured. An unreachable
// redis falls back to the in-process cache.
func (a *App) planCache(ctx context.Context) payment.PlanCache {
	if a.Config.Redis.Addr == "" {
		return payment.NewMemoryPlanCache()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("[Commence] Redis unavailable, using in-process plan cache", "addr", a.Config.Redis.Addr, "error", err)
		client.Close()
		return payment.NewMemoryPlanCache()
	}
	a.redis = client
	return payment.NewRedisPlanCache(client, a.Config.Redis.PlanTTL)
}

func (a *App) registerEventSinks(ctx context.Context) error {
	ev := a.Config.Events
	if ev.SQS.QueueURL != "" {
		client, err := events.NewSQSClient(ctx, ev.SQS.Region, ev.SQS.AccessKey, ev.SQS.Secret)
		if err != nil {
			return fmt.Errorf("sqs client: %w", err)
		}
		a.RegisterEventHandler(events.NewSQSHandler(client, ev.SQS.QueueURL))
	}
	if ev.WebhookURL != "" {
		a.RegisterEventHandler(events.NewWebhookHandler(ev.WebhookURL, ev.WebhookSecret, a.Config.Razorpay.Timeout))
	}
	slog.Info("[Commence] Event sinks registered", "count", a.Events.Len())
	return nil
}
