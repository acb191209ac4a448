package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL    string `envconfig:"TG_WEBHOOK_URL"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
	} `envconfig:""`

	AdminUserIDs []int64 `envconfig:"ADMIN_USER_IDS"`

	BackendURL string `envconfig:"BACKEND_URL" default:"http://localhost:4000"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Registry struct {
		RefreshInterval time.Duration `envconfig:"REGISTRY_REFRESH_INTERVAL" default:"5m"`
	} `envconfig:""`

	Gate struct {
		ValidateTimeout time.Duration `envconfig:"GATE_VALIDATE_TIMEOUT" default:"30s"`
		NotifyTimeout   time.Duration `envconfig:"GATE_NOTIFY_TIMEOUT" default:"5s"`
		PlatformTimeout time.Duration `envconfig:"GATE_PLATFORM_TIMEOUT" default:"10s"`
		DedupTTL        time.Duration `envconfig:"GATE_DEDUP_TTL" default:"10m"`
	} `envconfig:""`
}

// ErrMissingToken и ErrMissingAdmins, без них бот не запускается.
var (
	ErrMissingToken  = errors.New("не указан токен бота (TG_BOT_TOKEN)")
	ErrMissingAdmins = errors.New("не указаны администраторы (ADMIN_USER_IDS)")
)

// Load загружает .env (если есть) и конфиг из окружения.
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("чтение .env: %w", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("не удалось загрузить конфиг: %w", err)
	}
	return cfg, nil
}

// ValidateBot проверяет, что заданы параметры, обязательные для бота.
func (c AppConfig) ValidateBot() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, ErrMissingToken)
	}
	if len(c.AdminUserIDs) == 0 {
		errs = append(errs, ErrMissingAdmins)
	}
	return errors.Join(errs...)
}
