package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-channel-gate/internal/adapters/backend"
	"tg-channel-gate/internal/adapters/bot"
	"tg-channel-gate/internal/adapters/telegram"
	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/infra/cache"
	"tg-channel-gate/internal/infra/config"
	"tg-channel-gate/internal/infra/cron"
	httpserver "tg-channel-gate/internal/infra/http"
	"tg-channel-gate/internal/infra/log"
	"tg-channel-gate/internal/infra/metrics"
	"tg-channel-gate/internal/usecase/admin"
	"tg-channel-gate/internal/usecase/channels"
	"tg-channel-gate/internal/usecase/gate"
)

func main() {
	cfg, err := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить конфиг")
	}
	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal().Err(err).Msg("не заданы обязательные параметры")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, logger, cfg.MetricsAddr)
	}

	backendClient, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.Gate.ValidateTimeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректный адрес бэкенда")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	botAPI.Debug = cfg.AppEnv == "dev"
	logger.Info().Str("bot", botAPI.Self.UserName).Str("backend", backendClient.BaseURL()).Msg("бот авторизован")

	platform := telegram.NewPlatform(botAPI)

	registry := channels.NewRegistry(backendClient, logger.With().Str("component", "registry").Logger())
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Gate.ValidateTimeout)
	if stats, err := registry.Refresh(loadCtx); err != nil {
		logger.Error().Err(err).Msg("начальная загрузка каналов не удалась, все заявки будут отклоняться до следующего обновления")
	} else {
		logger.Info().Int("channels", stats.After).Msg("каналы загружены")
	}
	cancelLoad()

	scheduler := cron.NewScheduler(logger.With().Str("component", "cron").Logger())
	err = scheduler.Every(ctx, cfg.Registry.RefreshInterval, "registry_refresh", func(ctx context.Context) {
		refreshCtx, cancel := context.WithTimeout(ctx, cfg.Gate.ValidateTimeout)
		defer cancel()
		_, _ = registry.Refresh(refreshCtx)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось запланировать обновление каналов")
	}
	scheduler.Start()

	protocol := gate.New(registry, backendClient, platform, gate.Config{
		ValidateTimeout: cfg.Gate.ValidateTimeout,
		NotifyTimeout:   cfg.Gate.NotifyTimeout,
		PlatformTimeout: cfg.Gate.PlatformTimeout,
	}, logger.With().Str("component", "gate").Logger())

	adminService := admin.NewService(registry, backendClient, backendClient, admin.NewAllowList(cfg.AdminUserIDs), cfg.BackendURL, logger.With().Str("component", "admin").Logger())

	dedup, closeDedup := newDeduplicator(ctx, cfg, logger)
	defer closeDedup()

	handler := bot.NewHandler(logger.With().Str("component", "bot").Logger(), protocol, adminService, platform,
		bot.WithDeduplicator(dedup, cfg.Gate.DedupTTL))

	srv := httpserver.NewServer(logger)
	srv.SetReady(true)

	pollDone := make(chan struct{})

	if cfg.Telegram.WebhookURL != "" {
		if err := registerWebhook(botAPI, cfg); err != nil {
			logger.Fatal().Err(err).Msg("не удалось зарегистрировать вебхук")
		}
		srv.MountWebhook(cfg.Telegram.WebhookSecret, handler)
		close(pollDone)
		logger.Info().Msg("приём апдейтов через вебхук")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		go func() {
			defer close(pollDone)
			poll(ctx, botAPI, handler, logger)
		}()
		logger.Info().Msg("приём апдейтов через long polling")
	}

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	botAPI.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP сервер не остановился корректно")
	}
	select {
	case <-pollDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("обработка текущего апдейта не завершилась до таймаута")
	}
	scheduler.Stop(shutdownCtx)
	protocol.Wait()
}

func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, handler *bot.Handler, logger zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "chat_join_request"}
	updates := botAPI.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				logger.Info().Msg("канал апдейтов закрыт")
				return
			}
			handler.HandleUpdate(context.WithoutCancel(ctx), upd)
		}
	}
}

func registerWebhook(botAPI *tgbotapi.BotAPI, cfg config.AppConfig) error {
	if cfg.Telegram.WebhookSecret == "" {
		return fmt.Errorf("для вебхука нужен TG_WEBHOOK_SECRET")
	}
	url := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + "/bot/webhook/" + cfg.Telegram.WebhookSecret
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("адрес вебхука: %w", err)
	}
	wh.AllowedUpdates = []string{"message", "chat_join_request"}
	if _, err := botAPI.Request(wh); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

func newDeduplicator(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.Deduplicator, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	dedup := cache.NewRedis(client, "gate:")
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dedup.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis недоступен, дедупликация в памяти")
		_ = client.Close()
		return cache.NewMemory(), func() {}
	}
	return dedup, func() { _ = client.Close() }
}
