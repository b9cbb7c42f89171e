package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
	tele "gopkg.in/telebot.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	postgresStorage "github.com/cjfitness/notifier/internal/adapters/database/postgres"
	"github.com/cjfitness/notifier/internal/adapters/database/redis"
	"github.com/cjfitness/notifier/internal/domain/utils/location"
	"github.com/cjfitness/notifier/pkg/logger"
)

// Settings is the typed view of config.yaml and the environment.
type Settings struct {
	Debug     bool
	Timezone  string
	LogToFile bool
	LogsDir   string
	LogPrefix string

	Logging   LoggingSettings
	Database  DatabaseSettings
	Redis     RedisSettings
	SMTP      SMTPSettings
	Telegram  TelegramSettings
	HTTP      HTTPSettings
	Kafka     KafkaSettings
	Scheduler SchedulerSettings
	Trigger   TriggerSettings
}

type LoggingSettings struct {
	LogToChannel    bool
	ChannelID       int64
	ChannelLogLevel int
}

type DatabaseSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s TimeZone=UTC",
		d.User, d.Password, d.Name, d.Host, d.Port, d.SSLMode)
}

type RedisSettings struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

type SMTPSettings struct {
	Host            string
	Port            int
	Login           string
	Password        string
	From            string
	FromName        string
	Domain          string
	PortalURL       string
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type TelegramSettings struct {
	Token string
}

type HTTPSettings struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type KafkaSettings struct {
	Enabled bool
	Brokers []string
	Topic   string
	Group   string
}

type SchedulerSettings struct {
	RemindersCron    string
	BroadcastCron    string
	Timezone         string
	TickTimeout      time.Duration
	BroadcastTimeout time.Duration
	CatchUpWindow    time.Duration
}

type TriggerSettings struct {
	DeliveryTimeout time.Duration
	MaxConcurrent   int
	BatchSize       int
	StoreTimeout    time.Duration
	ReminderSubject string
	CheckInSubject  string
	CheckInMessage  string
	MarkerTTL       time.Duration
}

var defaults = map[string]interface{}{
	"settings.debug":                     false,
	"settings.timezone":                  "UTC",
	"settings.log-to-file":               false,
	"settings.logs-dir":                  "logs",
	"settings.log-prefix":                "",
	"settings.logging.log-to-channel":    false,
	"settings.logging.channel-id":        0,
	"settings.logging.channel-log-level": 2,

	"service.database.host":     "localhost",
	"service.database.port":     5432,
	"service.database.user":     "postgres",
	"service.database.password": "",
	"service.database.name":     "cjfitness",
	"service.database.ssl-mode": "disable",

	"service.redis.host":     "localhost",
	"service.redis.port":     6379,
	"service.redis.password": "",
	"service.redis.db":       0,
	"service.redis.prefix":   "notifier:broadcast",

	"service.smtp.host":             "smtp.gmail.com",
	"service.smtp.port":             587,
	"service.smtp.login":            "",
	"service.smtp.password":         "",
	"service.smtp.from":             "",
	"service.smtp.from-name":        "CJ Fitness",
	"service.smtp.domain":           "",
	"service.smtp.portal-url":       "",
	"service.smtp.rate-per-second":  5.0,
	"service.smtp.burst":            5,
	"service.smtp.breaker-failures": 5,
	"service.smtp.breaker-cooldown": "1m",

	"bot.token": "",

	"http.addr":             ":8080",
	"http.shutdown-timeout": "10s",

	"kafka.enabled": false,
	"kafka.brokers": []string{"localhost:9092"},
	"kafka.topic":   "portal.notifications",
	"kafka.group":   "notifier",

	"scheduler.reminders.cron":    "* * * * *",
	"scheduler.broadcast.cron":    "0 9 * * 1",
	"scheduler.timezone":          "",
	"scheduler.tick-timeout":      "50s",
	"scheduler.broadcast-timeout": "10m",
	"scheduler.catch-up-window":   "6h",

	"trigger.delivery-timeout": "30s",
	"trigger.max-concurrent":   8,
	"trigger.batch-size":       500,
	"trigger.store-timeout":    "10s",
	"trigger.reminder-subject": "",
	"trigger.checkin-subject":  "",
	"trigger.checkin-message":  "Happy Monday! Don't forget to submit your weekly check-in today to track your progress.",
	"trigger.marker-ttl":       "192h",
}

// Load reads configFile (config.yaml when empty), a .env file when present
// and the environment. A missing config file is not an error.
func Load(configFile string) (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	schedulerTZ := v.GetString("scheduler.timezone")
	if schedulerTZ == "" {
		schedulerTZ = v.GetString("settings.timezone")
	}

	return &Settings{
		Debug:     v.GetBool("settings.debug"),
		Timezone:  v.GetString("settings.timezone"),
		LogToFile: v.GetBool("settings.log-to-file"),
		LogsDir:   v.GetString("settings.logs-dir"),
		LogPrefix: v.GetString("settings.log-prefix"),
		Logging: LoggingSettings{
			LogToChannel:    v.GetBool("settings.logging.log-to-channel"),
			ChannelID:       v.GetInt64("settings.logging.channel-id"),
			ChannelLogLevel: v.GetInt("settings.logging.channel-log-level"),
		},
		Database: DatabaseSettings{
			Host:     v.GetString("service.database.host"),
			Port:     v.GetInt("service.database.port"),
			User:     v.GetString("service.database.user"),
			Password: v.GetString("service.database.password"),
			Name:     v.GetString("service.database.name"),
			SSLMode:  v.GetString("service.database.ssl-mode"),
		},
		Redis: RedisSettings{
			Host:     v.GetString("service.redis.host"),
			Port:     v.GetInt("service.redis.port"),
			Password: v.GetString("service.redis.password"),
			DB:       v.GetInt("service.redis.db"),
			Prefix:   v.GetString("service.redis.prefix"),
		},
		SMTP: SMTPSettings{
			Host:            v.GetString("service.smtp.host"),
			Port:            v.GetInt("service.smtp.port"),
			Login:           v.GetString("service.smtp.login"),
			Password:        v.GetString("service.smtp.password"),
			From:            v.GetString("service.smtp.from"),
			FromName:        v.GetString("service.smtp.from-name"),
			Domain:          v.GetString("service.smtp.domain"),
			PortalURL:       v.GetString("service.smtp.portal-url"),
			RatePerSecond:   v.GetFloat64("service.smtp.rate-per-second"),
			Burst:           v.GetInt("service.smtp.burst"),
			BreakerFailures: v.GetUint32("service.smtp.breaker-failures"),
			BreakerCooldown: v.GetDuration("service.smtp.breaker-cooldown"),
		},
		Telegram: TelegramSettings{
			Token: v.GetString("bot.token"),
		},
		HTTP: HTTPSettings{
			Addr:            v.GetString("http.addr"),
			ShutdownTimeout: v.GetDuration("http.shutdown-timeout"),
		},
		Kafka: KafkaSettings{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
			Group:   v.GetString("kafka.group"),
		},
		Scheduler: SchedulerSettings{
			RemindersCron:    v.GetString("scheduler.reminders.cron"),
			BroadcastCron:    v.GetString("scheduler.broadcast.cron"),
			Timezone:         schedulerTZ,
			TickTimeout:      v.GetDuration("scheduler.tick-timeout"),
			BroadcastTimeout: v.GetDuration("scheduler.broadcast-timeout"),
			CatchUpWindow:    v.GetDuration("scheduler.catch-up-window"),
		},
		Trigger: TriggerSettings{
			DeliveryTimeout: v.GetDuration("trigger.delivery-timeout"),
			MaxConcurrent:   v.GetInt("trigger.max-concurrent"),
			BatchSize:       v.GetInt("trigger.batch-size"),
			StoreTimeout:    v.GetDuration("trigger.store-timeout"),
			ReminderSubject: v.GetString("trigger.reminder-subject"),
			CheckInSubject:  v.GetString("trigger.checkin-subject"),
			CheckInMessage:  v.GetString("trigger.checkin-message"),
			MarkerTTL:       v.GetDuration("trigger.marker-ttl"),
		},
	}, nil
}

// Config holds the connections the service runs on.
type Config struct {
	Settings *Settings

	Database      *gorm.DB
	Redis         *redis.Client
	SMTPDialer    *gomail.Dialer
	Bot           *tele.Bot
	ConsumerGroup sarama.ConsumerGroup
}

// Get loads the settings, initialises the logger and connects every backing
// service. It panics when something required is unavailable.
func Get(configFile string) *Config {
	settings, err := Load(configFile)
	if err != nil {
		panic(err)
	}

	if err = location.Init(settings.Timezone); err != nil {
		panic(err)
	}

	err = logger.Init(logger.Config{
		Debug:        settings.Debug,
		TimeLocation: location.Location(),
		LogToFile:    settings.LogToFile,
		LogsDir:      settings.LogsDir,
		Prefix:       settings.LogPrefix,
	})
	if err != nil {
		panic(err)
	}

	var gormConfig *gorm.Config
	if settings.Debug {
		newLogger := gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold: time.Second,
				LogLevel:      gormLogger.Info,
				Colorful:      true,
			},
		)
		gormConfig = &gorm.Config{
			Logger: newLogger,
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Warn),
		}
	}

	database, err := gorm.Open(postgres.Open(settings.Database.DSN()), gormConfig)
	if err != nil {
		logger.Log.Panicf("Failed to connect to the database: %v", err)
	} else {
		logger.Log.Info("Successfully connected to the database")
	}

	errMigrate := database.AutoMigrate(postgresStorage.Migrations...)
	if errMigrate != nil {
		logger.Log.Panicf("Failed to migrate database: %v", errMigrate)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	redisClient, err := redis.New(ctx, redis.Options{
		Host:     settings.Redis.Host,
		Port:     settings.Redis.Port,
		Password: settings.Redis.Password,
		DB:       settings.Redis.DB,
		Prefix:   settings.Redis.Prefix,
	})
	if err != nil {
		logger.Log.Panicf("Failed to connect to redis: %v", err)
	} else {
		logger.Log.Info("Successfully connected to redis")
	}

	cfg := &Config{
		Settings:   settings,
		Database:   database,
		Redis:      redisClient,
		SMTPDialer: gomail.NewDialer(settings.SMTP.Host, settings.SMTP.Port, settings.SMTP.Login, settings.SMTP.Password),
	}

	if settings.Telegram.Token != "" {
		cfg.Bot, err = tele.NewBot(tele.Settings{Token: settings.Telegram.Token})
		if err != nil {
			logger.Log.Panicf("Failed to create telegram bot: %v", err)
		}
	}

	if settings.Kafka.Enabled {
		saramaCfg := sarama.NewConfig()
		saramaCfg.Version = sarama.V2_1_0_0
		saramaCfg.Consumer.Return.Errors = true
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
		cfg.ConsumerGroup, err = sarama.NewConsumerGroup(settings.Kafka.Brokers, settings.Kafka.Group, saramaCfg)
		if err != nil {
			logger.Log.Panicf("Failed to create Kafka consumer group: %v", err)
		}
	}

	return cfg
}
