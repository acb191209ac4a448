package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tg-channel-gate/internal/adapters/backend"
	"tg-channel-gate/internal/adapters/telegram"
	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/usecase/diagnostics"
)

type rootOptions struct {
	backendURL  string
	botToken    string
	telegramAPI string
	timeout     time.Duration
}

// defaults: значения флагов из окружения.
type defaults struct {
	BackendURL string
	BotToken   string
}

func newRootCmd(d defaults) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Диагностика бэкенда для бота управления доступом к каналам",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.backendURL, "backend", d.BackendURL, "адрес бэкенда")
	root.PersistentFlags().StringVar(&opts.botToken, "token", d.BotToken, "токен бота для проверок Telegram")
	root.PersistentFlags().StringVar(&opts.telegramAPI, "telegram-api", "", "шаблон адреса Bot API")
	_ = root.PersistentFlags().MarkHidden("telegram-api")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "таймаут одной команды")

	root.AddCommand(
		newHealthCmd(opts),
		newLinksCmd(opts),
		newGenerateLinksCmd(opts),
		newValidateCmd(opts),
		newExpiryCmd(opts),
		newCheckExpiryCmd(opts),
		newRemovalCmd(opts),
		newE2ECmd(opts),
	)
	return root
}

func (o *rootOptions) service(cmd *cobra.Command) (*diagnostics.Service, context.Context, context.CancelFunc, error) {
	client, err := backend.New(o.backendURL, backend.WithTimeout(o.timeout))
	if err != nil {
		return nil, nil, nil, err
	}
	var dopts []diagnostics.Option
	if o.botToken != "" {
		dopts = append(dopts, diagnostics.WithBot(telegram.DialInspector(o.botToken, o.telegramAPI, o.timeout)))
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	return diagnostics.NewService(client, cmd.OutOrStdout(), dopts...), ctx, cancel, nil
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Проверить /health и список активных каналов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			return svc.Health(ctx)
		},
	}
}

func newLinksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "Найти каналы без пригласительных ссылок",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.AuditLinks(ctx)
			return err
		},
	}
}

func newGenerateLinksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-links",
		Short: "Сгенерировать недостающие ссылки для каналов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.GenerateMissingLinks(ctx)
			return err
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		link      string
		userID    int64
		channelID int64
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Отправить пробный validate-join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.ValidateProbe(ctx, domain.ValidateJoinParams{
				InviteLink: link,
				UserID:     userID,
				ChannelID:  channelID,
				Channel:    domain.ManagedChannel{ChannelID: channelID},
			})
			return err
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "пригласительная ссылка")
	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram ID пользователя")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "ID канала")
	_ = cmd.MarkFlagRequired("link")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func newExpiryCmd(opts *rootOptions) *cobra.Command {
	var kick bool
	cmd := &cobra.Command{
		Use:   "expiry",
		Short: "Статистика истечения доступа, с --kick ручной запуск удаления",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.Expiry(ctx, kick)
			return err
		},
	}
	cmd.Flags().BoolVar(&kick, "kick", false, "удалить истёкших участников")
	return cmd
}

func newCheckExpiryCmd(opts *rootOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "check-expiry",
		Short: "Проверить, истёк ли доступ пользователя",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.CheckExpiry(ctx, userID)
			return err
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram ID пользователя")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRemovalCmd(opts *rootOptions) *cobra.Command {
	var p diagnostics.RemovalParams
	cmd := &cobra.Command{
		Use:   "removal",
		Short: "Проверить цепочку удаления участников",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.Removal(ctx, p)
			return err
		},
	}
	cmd.Flags().Int64Var(&p.UserID, "user", 0, "Telegram ID тестового пользователя")
	cmd.Flags().Int64Var(&p.ChannelID, "channel", 0, "ID канала")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func newE2ECmd(opts *rootOptions) *cobra.Command {
	var p diagnostics.E2EParams
	cmd := &cobra.Command{
		Use:   "e2e",
		Short: "Сквозная проверка: бот, бэкенд, ссылки, истечение, вступление",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, cancel, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			_, err = svc.E2E(ctx, p)
			return err
		},
	}
	cmd.Flags().Int64Var(&p.UserID, "user", 0, "Telegram ID тестового пользователя")
	cmd.Flags().Int64Var(&p.ChannelID, "channel", 0, "ID канала")
	cmd.Flags().StringVar(&p.InviteLink, "link", "https://t.me/+gatectl-e2e", "ссылка для validate-join")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}
