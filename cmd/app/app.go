package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/cjfitness/notifier/internal/adapters/config"
	"github.com/cjfitness/notifier/internal/adapters/controller/api"
	"github.com/cjfitness/notifier/internal/adapters/controller/kafka"
	"github.com/cjfitness/notifier/internal/adapters/controller/scheduler"
	"github.com/cjfitness/notifier/internal/adapters/database/postgres"
	"github.com/cjfitness/notifier/internal/adapters/metrics"
	"github.com/cjfitness/notifier/internal/adapters/supervisor"
	"github.com/cjfitness/notifier/internal/domain/service"
	"github.com/cjfitness/notifier/pkg/logger"
	"github.com/cjfitness/notifier/pkg/logger/types"
	"github.com/cjfitness/notifier/pkg/smtp"
)

type App struct {
	tree    *supervisor.Tree
	logger  *types.Logger
	closers []func() error
}

func named(names ...string) (map[string]*types.Logger, error) {
	loggers := make(map[string]*types.Logger, len(names))
	for _, name := range names {
		l, err := logger.Named(name)
		if err != nil {
			return nil, err
		}
		loggers[name] = l
	}
	return loggers, nil
}

func New(cfg *config.Config) (*App, error) {
	settings := cfg.Settings
	loggers, err := named("app", "smtp", "trigger", "scheduler", "http", "kafka", "supervisor", "notify")
	if err != nil {
		return nil, err
	}

	metrics.Init()

	if cfg.Bot != nil && settings.Logging.LogToChannel {
		notifyService := service.NewNotifyService(cfg.Bot, loggers["notify"])
		logger.SetLogHook(notifyService.LogHook(
			settings.Logging.ChannelID,
			zapcore.Level(settings.Logging.ChannelLogLevel),
		))
	}

	reminderStorage := postgres.NewReminderStorage(cfg.Database)
	notificationStorage := postgres.NewNotificationStorage(cfg.Database)
	clientStorage := postgres.NewClientStorage(cfg.Database)

	reminderService := service.NewReminderService(reminderStorage)
	notificationService := service.NewNotificationService(notificationStorage)
	clientService := service.NewClientService(clientStorage)

	mailer, err := smtp.NewClient(cfg.SMTPDialer, smtp.Options{
		From:            settings.SMTP.From,
		FromName:        settings.SMTP.FromName,
		Domain:          settings.SMTP.Domain,
		PortalURL:       settings.SMTP.PortalURL,
		RatePerSecond:   settings.SMTP.RatePerSecond,
		Burst:           settings.SMTP.Burst,
		BreakerFailures: settings.SMTP.BreakerFailures,
		BreakerCooldown: settings.SMTP.BreakerCooldown,
	}, loggers["smtp"])
	if err != nil {
		return nil, err
	}

	triggerService := service.NewTriggerService(
		reminderStorage,
		clientService,
		notificationService,
		mailer,
		cfg.Redis.Broadcasts,
		service.TriggerConfig{
			DeliveryTimeout: settings.Trigger.DeliveryTimeout,
			MaxConcurrent:   settings.Trigger.MaxConcurrent,
			BatchSize:       settings.Trigger.BatchSize,
			StoreTimeout:    settings.Trigger.StoreTimeout,
			ReminderSubject: settings.Trigger.ReminderSubject,
			CheckInSubject:  settings.Trigger.CheckInSubject,
			CheckInMessage:  settings.Trigger.CheckInMessage,
			MarkerTTL:       settings.Trigger.MarkerTTL,
		},
		loggers["trigger"],
	)

	loc, err := time.LoadLocation(settings.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(triggerService, scheduler.Options{
		RemindersSpec:    settings.Scheduler.RemindersCron,
		BroadcastSpec:    settings.Scheduler.BroadcastCron,
		Location:         loc,
		TickTimeout:      settings.Scheduler.TickTimeout,
		BroadcastTimeout: settings.Scheduler.BroadcastTimeout,
		CatchUpWindow:    settings.Scheduler.CatchUpWindow,
	}, loggers["scheduler"])
	if err != nil {
		return nil, err
	}

	router := api.NewRouter(api.Handlers{
		Notifications: api.NewNotificationHandler(notificationService, loggers["http"]),
		Reminders:     api.NewReminderHandler(reminderService, loggers["http"]),
		Schedule:      sched,
		Tasks:         []string{scheduler.TaskReminders, scheduler.TaskCheckInBroadcast},
	}, loggers["http"])
	server := api.NewServer(&http.Server{
		Addr:              settings.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, settings.HTTP.ShutdownTimeout)

	a := &App{
		tree:   supervisor.NewTree(loggers["supervisor"], supervisor.DefaultTreeConfig()),
		logger: loggers["app"],
	}
	a.tree.AddCoreService(sched)
	a.tree.AddAPIService(server)

	if cfg.ConsumerGroup != nil {
		consumer := kafka.NewConsumer(settings.Kafka.Topic, cfg.ConsumerGroup, notificationService, loggers["kafka"])
		a.tree.AddMessagingService(consumer)
		a.closers = append(a.closers, consumer.Close)
	}

	a.closers = append(a.closers, cfg.Redis.Close)
	if sqlDB, errDB := cfg.Database.DB(); errDB == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	return a, nil
}

// Run serves until ctx is cancelled, then closes every connection.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Service starting")
	err := a.tree.Serve(ctx)

	if unstopped, errReport := a.tree.UnstoppedServiceReport(); errReport == nil && len(unstopped) > 0 {
		a.logger.Warnf("Services that did not stop in time: %v", unstopped)
	}
	for _, closeFn := range a.closers {
		if errClose := closeFn(); errClose != nil {
			a.logger.Warnf("Failed to close connection: %v", errClose)
		}
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
