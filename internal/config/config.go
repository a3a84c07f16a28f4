package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppName       string
	Environment   string
	SnowflakeNode int64

	HTTP         HTTPConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Scheduler    SchedulerConfig
	Notification NotificationConfig
	Vault        VaultConfig
	Cron         CronConfig
}

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	Enabled        bool
	Spec           string
	Timezone       string
	LockTTL        time.Duration
	ReminderWindow time.Duration
}

type NotificationConfig struct {
	Timeout          time.Duration
	MaxAttempts      int
	InitialInterval  time.Duration
	MaxElapsed       time.Duration
	LineNotifyURL    string
	LineMessagingURL string
}

type VaultConfig struct {
	Provider string
	AESKey   string
}

type CronConfig struct {
	Secret string
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		AppName:       v.GetString("APP_NAME"),
		Environment:   strings.ToLower(v.GetString("APP_ENV")),
		SnowflakeNode: v.GetInt64("SNOWFLAKE_NODE"),
		HTTP: HTTPConfig{
			Addr:         v.GetString("HTTP_ADDR"),
			ReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        v.GetBool("SCHEDULER_ENABLED"),
			Spec:           v.GetString("SCHEDULER_SPEC"),
			Timezone:       v.GetString("SCHEDULER_TIMEZONE"),
			LockTTL:        v.GetDuration("SCHEDULER_LOCK_TTL"),
			ReminderWindow: v.GetDuration("SCHEDULER_REMINDER_WINDOW"),
		},
		Notification: NotificationConfig{
			Timeout:          v.GetDuration("NOTIFICATION_TIMEOUT"),
			MaxAttempts:      v.GetInt("NOTIFICATION_MAX_ATTEMPTS"),
			InitialInterval:  v.GetDuration("NOTIFICATION_INITIAL_INTERVAL"),
			MaxElapsed:       v.GetDuration("NOTIFICATION_MAX_ELAPSED"),
			LineNotifyURL:    v.GetString("LINE_NOTIFY_URL"),
			LineMessagingURL: v.GetString("LINE_MESSAGING_URL"),
		},
		Vault: VaultConfig{
			Provider: v.GetString("VAULT_PROVIDER"),
			AESKey:   v.GetString("ENCRYPTION_KEY"),
		},
		Cron: CronConfig{
			Secret: v.GetString("CRON_SECRET"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "dormitory")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("SNOWFLAKE_NODE", 1)

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 30*time.Second)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=dormitory port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_SPEC", "0 8 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "Asia/Bangkok")
	v.SetDefault("SCHEDULER_LOCK_TTL", 15*time.Minute)
	v.SetDefault("SCHEDULER_REMINDER_WINDOW", 72*time.Hour)

	v.SetDefault("NOTIFICATION_TIMEOUT", 10*time.Second)
	v.SetDefault("NOTIFICATION_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFICATION_INITIAL_INTERVAL", 500*time.Millisecond)
	v.SetDefault("NOTIFICATION_MAX_ELAPSED", 10*time.Second)
	v.SetDefault("LINE_NOTIFY_URL", "https://notify-api.line.me/api/notify")
	v.SetDefault("LINE_MESSAGING_URL", "https://api.line.me/v2/bot/message/push")

	v.SetDefault("VAULT_PROVIDER", "aes")
}
