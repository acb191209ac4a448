package gate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/infra/metrics"
)

// Config: таймауты вызовов протокола.
type Config struct {
	ValidateTimeout time.Duration
	NotifyTimeout   time.Duration
	PlatformTimeout time.Duration
}

// DefaultConfig возвращает таймауты по умолчанию.
func DefaultConfig() Config {
	return Config{
		ValidateTimeout: 30 * time.Second,
		NotifyTimeout:   5 * time.Second,
		PlatformTimeout: 10 * time.Second,
	}
}

// Protocol проверяет заявку на вступление и доводит её до одобрения или отказа.
type Protocol struct {
	channels domain.ChannelDirectory
	backend  domain.JoinValidator
	platform domain.Platform
	tasks    *Runner
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// New создаёт протокол обработки заявок.
func New(channels domain.ChannelDirectory, backend domain.JoinValidator, platform domain.Platform, cfg Config, logger zerolog.Logger) *Protocol {
	def := DefaultConfig()
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = def.ValidateTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = def.NotifyTimeout
	}
	if cfg.PlatformTimeout <= 0 {
		cfg.PlatformTimeout = def.PlatformTimeout
	}
	return &Protocol{
		channels: channels,
		backend:  backend,
		platform: platform,
		tasks:    NewRunner(cfg.NotifyTimeout, logger),
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
	}
}

// Handle обрабатывает одну заявку от начала до конца. Ошибки не выходят наружу,
// они отражены в Result.
func (p *Protocol) Handle(ctx context.Context, req domain.JoinRequest) Result {
	log := p.log.With().
		Str("trace_id", uuid.NewString()).
		Int64("user", req.UserID).
		Int64("channel", req.ChannelID).
		Logger()
	log.Info().Str("chat", req.ChatTitle).Bool("has_link", req.HasLink()).Msg("заявка на вступление")

	res := p.handle(ctx, log, req)
	metrics.ObserveJoinDecision(string(res.Outcome), string(res.Reason))

	ev := log.Info()
	if res.Outcome == OutcomeFailed {
		ev = log.Error()
	}
	ev.Err(res.Err).
		Str("outcome", string(res.Outcome)).
		Str("reason", string(res.Reason)).
		Bool("resolved", res.Terminal()).
		Msg("заявка обработана")
	return res
}

// Wait дожидается фоновых уведомлений.
func (p *Protocol) Wait() {
	p.tasks.Wait()
}

func (p *Protocol) handle(ctx context.Context, log zerolog.Logger, req domain.JoinRequest) Result {
	channel, ok := p.channels.Lookup(req.ChannelID)
	if !ok {
		log.Warn().Msg("канал не управляется ботом, отклоняем")
		return p.decline(ctx, log, req, req.ChatTitle, ReasonUnmanagedChannel, "", nil)
	}
	title := channel.Title()
	if req.ChatTitle != "" {
		title = req.ChatTitle
	}
	if !req.HasLink() {
		log.Warn().Msg("заявка без пригласительной ссылки, отклоняем")
		return p.decline(ctx, log, req, title, ReasonMissingLink, "", nil)
	}

	outcome, err := p.validate(ctx, req, channel)
	if err != nil {
		var statusErr *domain.BackendStatusError
		if errors.As(err, &statusErr) {
			log.Error().Err(err).
				Str("endpoint", statusErr.Endpoint).
				Int("status", statusErr.Status).
				Str("body", statusErr.Body).
				Msg("бэкенд вернул ошибку при проверке, отклоняем")
			return p.decline(ctx, log, req, title, ReasonBackendError, "", err)
		}
		log.Error().Err(err).Str("step", "validate").Msg("бэкенд недоступен, отклоняем")
		return p.decline(ctx, log, req, title, ReasonBackendUnavailable, "", err)
	}
	if !outcome.Approve {
		log.Info().Str("backend_reason", outcome.Reason).Msg("бэкенд отклонил ссылку")
		return p.decline(ctx, log, req, title, ReasonRejected, outcome.Reason, nil)
	}
	return p.approve(ctx, log, req, title)
}

func (p *Protocol) validate(ctx context.Context, req domain.JoinRequest, channel domain.ManagedChannel) (domain.ValidationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ValidateTimeout)
	defer cancel()
	return p.backend.ValidateJoin(ctx, domain.ValidateJoinParams{
		InviteLink: req.InviteLink,
		UserID:     req.UserID,
		ChannelID:  req.ChannelID,
		User:       req.User,
		Channel:    channel,
	})
}

func (p *Protocol) approve(ctx context.Context, log zerolog.Logger, req domain.JoinRequest, title string) Result {
	err := p.platformCall(ctx, func(ctx context.Context) error {
		return p.platform.ApproveJoinRequest(ctx, req.ChannelID, req.UserID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrJoinRequestGone) {
			log.Warn().Err(err).Msg("заявка уже обработана или истекла, пропускаем")
			return Result{Outcome: OutcomeRaceSkipped, Err: err}
		}
		log.Error().Err(err).Str("step", "approve").Msg("не удалось одобрить заявку")
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	log.Info().Msg("заявка одобрена")

	res := Result{Outcome: OutcomeApproved}
	err = p.platformCall(ctx, func(ctx context.Context) error {
		return p.platform.RevokeInviteLink(ctx, req.ChannelID, req.InviteLink)
	})
	if err != nil {
		res.RevokeErr = err
		metrics.IncBestEffortFailure("revoke_link")
		log.Error().Err(err).Str("step", "revoke").Str("link", req.InviteLink).Msg("не удалось отозвать ссылку")
	} else {
		log.Info().Str("link", req.InviteLink).Msg("ссылка отозвана")
	}

	notification := domain.JoinNotification{
		InviteLink: req.InviteLink,
		UserID:     req.UserID,
		ChannelID:  req.ChannelID,
		JoinedAt:   p.now().UTC(),
		Action:     domain.JoinActionJoinedAndRevoked,
	}
	p.tasks.Go(ctx, "notify_backend", func(ctx context.Context) error {
		return p.backend.NotifyJoined(ctx, notification)
	})
	p.tasks.Go(ctx, "welcome_message", func(ctx context.Context) error {
		return p.platform.SendMessage(ctx, req.UserID, welcomeMessage(title))
	})
	return res
}

func (p *Protocol) decline(ctx context.Context, log zerolog.Logger, req domain.JoinRequest, title string, reason Reason, backendReason string, cause error) Result {
	err := p.platformCall(ctx, func(ctx context.Context) error {
		return p.platform.DeclineJoinRequest(ctx, req.ChannelID, req.UserID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrJoinRequestGone) {
			log.Warn().Err(err).Msg("заявка уже обработана или истекла, пропускаем")
			return Result{Outcome: OutcomeRaceSkipped, Reason: reason, BackendReason: backendReason, Err: err}
		}
		log.Error().Err(err).Str("step", "decline").Msg("не удалось отклонить заявку")
		return Result{Outcome: OutcomeFailed, Reason: reason, BackendReason: backendReason, Err: errors.Join(cause, err)}
	}

	if title == "" {
		title = "канал"
	}
	text := declineMessage(title, reason, backendReason)
	p.tasks.Go(ctx, "decline_message", func(ctx context.Context) error {
		return p.platform.SendMessage(ctx, req.UserID, text)
	})
	return Result{Outcome: OutcomeDeclined, Reason: reason, BackendReason: backendReason, Err: cause}
}

func (p *Protocol) platformCall(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PlatformTimeout)
	defer cancel()
	return fn(ctx)
}
