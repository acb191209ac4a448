package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/usecase/admin"
	"tg-channel-gate/internal/usecase/channels"
	"tg-channel-gate/internal/usecase/gate"
)

const replyTimeout = 10 * time.Second

// JoinGate обрабатывает заявки на вступление.
type JoinGate interface {
	Handle(ctx context.Context, req domain.JoinRequest) gate.Result
}

// AdminCommands: команды администратора.
type AdminCommands interface {
	IsAdmin(callerID int64) bool
	ChannelCount() int
	BackendURL() string
	Status(ctx context.Context, callerID int64) (admin.StatusReport, error)
	Reload(ctx context.Context, callerID int64) (channels.RefreshStats, error)
	Channels(callerID int64) ([]domain.ManagedChannel, error)
	GenerateTestLink(ctx context.Context, callerID int64, rawDuration string) (admin.TestLink, error)
}

// Handler разбирает апдейты бота: заявки на вступление и команды.
type Handler struct {
	log      zerolog.Logger
	gate     JoinGate
	admin    AdminCommands
	platform domain.Platform
	dedup    domain.Deduplicator
	dedupTTL time.Duration
}

// Option настраивает Handler.
type Option func(*Handler)

// WithDeduplicator включает защиту от повторной доставки заявок.
func WithDeduplicator(d domain.Deduplicator, ttl time.Duration) Option {
	return func(h *Handler) {
		h.dedup = d
		h.dedupTTL = ttl
	}
}

// NewHandler создаёт обработчик.
func NewHandler(log zerolog.Logger, joinGate JoinGate, adminUC AdminCommands, platform domain.Platform, opts ...Option) *Handler {
	h := &Handler{
		log:      log,
		gate:     joinGate,
		admin:    adminUC,
		platform: platform,
		dedupTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.ChatJoinRequest != nil:
		h.handleJoinRequest(ctx, upd.ChatJoinRequest)
	case upd.Message != nil:
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleJoinRequest(ctx context.Context, jr *tgbotapi.ChatJoinRequest) {
	req := joinRequestFromUpdate(jr)
	if h.dedup == nil {
		h.gate.Handle(ctx, req)
		return
	}

	key := fmt.Sprintf("join:%d:%d:%d", req.ChannelID, req.UserID, jr.Date)
	ran := false
	err := h.dedup.Once(ctx, key, h.dedupTTL, func() error {
		ran = true
		res := h.gate.Handle(ctx, req)
		if res.Outcome == gate.OutcomeFailed {
			return res.Err
		}
		return nil
	})
	switch {
	case ran:
	case err != nil:
		h.log.Warn().Err(err).Str("key", key).Msg("дедупликация недоступна, обрабатываем заявку без неё")
		h.gate.Handle(ctx, req)
	default:
		h.log.Info().Str("key", key).Msg("повторная доставка заявки, пропускаем")
	}
}

func joinRequestFromUpdate(jr *tgbotapi.ChatJoinRequest) domain.JoinRequest {
	req := domain.JoinRequest{
		UserID:    jr.From.ID,
		ChannelID: jr.Chat.ID,
		ChatTitle: jr.Chat.Title,
		At:        time.Unix(int64(jr.Date), 0).UTC(),
		User: domain.UserInfo{
			FirstName: jr.From.FirstName,
			LastName:  jr.From.LastName,
			Username:  jr.From.UserName,
		},
	}
	if jr.InviteLink != nil {
		req.InviteLink = jr.InviteLink.InviteLink
	}
	return req
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !msg.IsCommand() {
		if msg.Chat != nil && msg.Chat.IsPrivate() {
			h.reply(ctx, msg.Chat.ID, "Неизвестная команда. Используйте /help")
		}
		return
	}
	chatID := msg.Chat.ID
	callerID := msg.From.ID
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, chatID, msg.From)
	case "help":
		h.handleHelp(ctx, chatID, callerID)
	case "status":
		h.handleStatus(ctx, chatID, callerID)
	case "reload":
		h.handleReload(ctx, chatID, callerID)
	case "channels":
		h.handleChannels(ctx, chatID, callerID)
	case "getlink":
		h.handleGetLink(ctx, chatID, callerID, msg.CommandArguments())
	default:
		h.reply(ctx, chatID, "Неизвестная команда. Используйте /help")
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	greeting := fmt.Sprintf("👋 Здравствуйте, %s!\n\n", from.FirstName)
	if h.admin.IsAdmin(from.ID) {
		h.reply(ctx, chatID, greeting+h.buildAdminHelp())
		return
	}
	h.reply(ctx, chatID, greeting+buildUserHelp())
}

func (h *Handler) handleHelp(ctx context.Context, chatID, callerID int64) {
	if h.admin.IsAdmin(callerID) {
		h.reply(ctx, chatID, h.buildAdminHelp())
		return
	}
	h.reply(ctx, chatID, buildUserHelp())
}

func (h *Handler) handleStatus(ctx context.Context, chatID, callerID int64) {
	report, err := h.admin.Status(ctx, callerID)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, formatStatus(report))
}

func (h *Handler) handleReload(ctx context.Context, chatID, callerID int64) {
	if !h.admin.IsAdmin(callerID) {
		h.replyError(ctx, chatID, admin.ErrNotAdmin)
		return
	}
	h.reply(ctx, chatID, "🔄 Обновляю список каналов...")
	stats, err := h.admin.Reload(ctx, callerID)
	if err != nil {
		h.log.Error().Err(err).Int64("admin", callerID).Msg("не удалось обновить реестр по команде")
		h.reply(ctx, chatID, fmt.Sprintf("❌ Не удалось обновить каналы: %v\nПрежний список сохранён.", err))
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("✅ Каналы обновлены\n\n📊 Было: %d\n📊 Стало: %d\n🔄 Изменение: %+d", stats.Before, stats.After, stats.Delta()))
}

func (h *Handler) handleChannels(ctx context.Context, chatID, callerID int64) {
	list, err := h.admin.Channels(callerID)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	if len(list) == 0 {
		h.reply(ctx, chatID, "📭 Активных каналов нет.")
		return
	}
	h.reply(ctx, chatID, formatChannels(list))
}

func (h *Handler) handleGetLink(ctx context.Context, chatID, callerID int64, args string) {
	link, err := h.admin.GenerateTestLink(ctx, callerID, firstArg(args))
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrDurationRequired):
			h.reply(ctx, chatID, "❌ Укажите длительность\n\n"+durationUsage())
		case errors.Is(err, admin.ErrInvalidDuration):
			h.reply(ctx, chatID, "❌ Неверный формат длительности\n\n"+durationUsage())
		default:
			h.replyError(ctx, chatID, err)
		}
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("✅ Тестовая ссылка создана\n\n🔗 %s\n⏰ Срок: %s\n⚠️ Ссылка только для проверки.", link.URL, link.Raw))
}

func (h *Handler) replyError(ctx context.Context, chatID int64, err error) {
	var statusErr *domain.BackendStatusError
	switch {
	case errors.Is(err, admin.ErrNotAdmin):
		h.reply(ctx, chatID, "⚠️ Доступ запрещён. Команда только для администраторов.")
	case errors.As(err, &statusErr):
		h.reply(ctx, chatID, fmt.Sprintf("❌ Ошибка бэкенда: %d\n%s", statusErr.Status, truncate(statusErr.Body, 200)))
	default:
		h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка команды")
		h.reply(ctx, chatID, fmt.Sprintf("❌ Ошибка: %v", err))
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	if err := h.platform.SendMessage(ctx, chatID, text); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
	}
}

func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
