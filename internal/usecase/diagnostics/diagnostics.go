package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tg-channel-gate/internal/domain"
)

// Backend: эндпоинты бэкенда, которые проверяет диагностика.
type Backend interface {
	BaseURL() string
	Health(ctx context.Context) (domain.BackendHealth, error)
	ListActiveChannels(ctx context.Context) ([]domain.ManagedChannel, error)
	GenerateChannelLink(ctx context.Context, groupID, channelDBID string) (string, error)
	ValidateJoin(ctx context.Context, params domain.ValidateJoinParams) (domain.ValidationOutcome, error)
	GenerateTestLink(ctx context.Context, params domain.TestLinkParams) (string, error)
	NotifyJoined(ctx context.Context, n domain.JoinNotification) error
	ExpiryStats(ctx context.Context) (domain.ExpiryStats, error)
	KickExpired(ctx context.Context) (domain.KickResult, error)
	CheckExpiry(ctx context.Context, userID int64) (domain.ExpiryCheck, error)
	NotifyKick(ctx context.Context, n domain.KickNotification) (string, error)
	ChannelMembers(ctx context.Context) ([]domain.ChannelMember, error)
	RequestRecovery(ctx context.Context, r domain.RecoveryRequest) error
}

// Bot: проверки токена и прав бота в Telegram.
type Bot interface {
	Identity(ctx context.Context) (domain.BotIdentity, error)
	ChannelAccess(ctx context.Context, chatID int64) (domain.ChannelAccess, error)
}

// ErrLinksMissing: после генерации у части каналов всё ещё нет ссылки.
var ErrLinksMissing = errors.New("не у всех каналов есть пригласительные ссылки")

const rule = "============================================================"

// Service выполняет диагностические проверки и печатает отчёт в w.
type Service struct {
	backend Backend
	bot     Bot
	out     io.Writer
	now     func() time.Time
}

type Option func(*Service)

// WithBot включает проверки, которым нужен токен бота.
func WithBot(bot Bot) Option {
	return func(s *Service) {
		s.bot = bot
	}
}

// NewService создаёт сервис диагностики.
func NewService(backend Backend, out io.Writer, opts ...Option) *Service {
	s := &Service{backend: backend, out: out, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Health проверяет /health и список активных каналов.
func (s *Service) Health(ctx context.Context) error {
	s.printf("🔗 Проверка бэкенда %s\n", s.backend.BaseURL())
	health, err := s.backend.Health(ctx)
	if err != nil {
		s.printf("❌ Бэкенд недоступен: %v\n", err)
		return fmt.Errorf("health: %w", err)
	}
	s.printf("✅ Бэкенд отвечает\n")
	s.printf("   Status: %s\n", orNA(health.Status))
	s.printf("   DB Status: %s\n", orNA(health.DBStatus))
	s.printf("   Port: %s\n", orNA(health.Port))

	s.printf("\n📺 Активные каналы\n")
	list, err := s.backend.ListActiveChannels(ctx)
	if err != nil {
		s.printf("   ❌ Не удалось получить каналы: %v\n", err)
		return fmt.Errorf("active channels: %w", err)
	}
	s.printf("   Найдено: %d\n", len(list))
	for i, ch := range list {
		s.printf("   %d. %s (ID: %d)\n", i+1, ch.Title(), ch.ChannelID)
	}
	return nil
}

// LinkAudit: результат проверки пригласительных ссылок каналов.
type LinkAudit struct {
	Total    int
	Legacy   []domain.ManagedChannel
	Modern   []domain.ManagedChannel
	Channels []domain.ManagedChannel
}

// Missing возвращает количество каналов без ссылки.
func (a LinkAudit) Missing() int {
	return len(a.Legacy) + len(a.Modern)
}

// AuditLinks ищет каналы без пригласительной ссылки и подсказывает, как их исправить.
func (s *Service) AuditLinks(ctx context.Context) (LinkAudit, error) {
	s.printf("🔍 Проверка пригласительных ссылок каналов\n%s\n", rule)
	list, err := s.backend.ListActiveChannels(ctx)
	if err != nil {
		s.printf("   ❌ Не удалось получить каналы: %v\n", err)
		return LinkAudit{}, fmt.Errorf("active channels: %w", err)
	}
	audit := auditChannels(list)

	s.printf("   📊 Активных каналов: %d\n\n", audit.Total)
	for i, ch := range list {
		s.printf("   %d. %s\n", i+1, ch.Title())
		s.printf("      📍 Channel ID: %d\n", ch.ChannelID)
		s.printf("      🔗 Join Link: %s\n", orMissing(ch.JoinLink))
		s.printf("      📜 Legacy: %t\n\n", ch.IsLegacy)
	}
	s.printf("   ⚠️ Без ссылки: %d/%d\n", audit.Missing(), audit.Total)

	if audit.Missing() == 0 {
		s.printf("\n✅ У всех каналов есть пригласительные ссылки\n")
		return audit, nil
	}
	s.printf("\n📋 Что сделать:\n")
	for _, ch := range audit.Legacy {
		s.printf("   • Legacy-канал %q: обновить telegramInviteLink вручную\n", ch.Title())
	}
	for _, ch := range audit.Modern {
		s.printf("   • Канал %q: сгенерировать ссылку через API\n", ch.Title())
		s.printf("     POST %s\n", generateLinkPath(ch))
	}
	return audit, nil
}

// GenerateReport: итог генерации недостающих ссылок.
type GenerateReport struct {
	Attempted int
	Succeeded int
	Failed    map[string]error
	After     LinkAudit
}

// GenerateMissingLinks выпускает ссылки для современных каналов без ссылки и проверяет результат.
func (s *Service) GenerateMissingLinks(ctx context.Context) (GenerateReport, error) {
	s.printf("🔧 Генерация недостающих ссылок\n%s\n", rule)
	list, err := s.backend.ListActiveChannels(ctx)
	if err != nil {
		s.printf("   ❌ Не удалось получить каналы: %v\n", err)
		return GenerateReport{}, fmt.Errorf("active channels: %w", err)
	}
	before := auditChannels(list)
	report := GenerateReport{Failed: map[string]error{}}
	s.printf("   📊 Каналов: %d, без ссылки: %d (legacy: %d)\n", before.Total, before.Missing(), len(before.Legacy))
	if len(before.Modern) == 0 {
		s.printf("   ✅ Генерировать нечего\n")
		report.After = before
		if len(before.Legacy) > 0 {
			return report, ErrLinksMissing
		}
		return report, nil
	}

	for i, ch := range before.Modern {
		report.Attempted++
		s.printf("\n   %d/%d %s\n", i+1, len(before.Modern), ch.Title())
		s.printf("      Group ID: %s\n", orNA(ch.GroupID))
		s.printf("      Channel DB ID: %s\n", orNA(ch.DBID))
		if ch.GroupID == "" || ch.DBID == "" {
			err := errors.New("нет group_id или channel_db_id")
			report.Failed[ch.Title()] = err
			s.printf("      ❌ %v\n", err)
			continue
		}
		link, err := s.backend.GenerateChannelLink(ctx, ch.GroupID, ch.DBID)
		if err != nil {
			report.Failed[ch.Title()] = err
			s.printf("      ❌ %v\n", err)
			continue
		}
		report.Succeeded++
		s.printf("      ✅ %s\n", truncate(link, 50))
	}

	s.printf("\n   Успешно: %d/%d\n", report.Succeeded, report.Attempted)
	list, err = s.backend.ListActiveChannels(ctx)
	if err != nil {
		s.printf("   ⚠️ Не удалось перепроверить каналы: %v\n", err)
		return report, fmt.Errorf("re-audit: %w", err)
	}
	report.After = auditChannels(list)
	for _, ch := range list {
		status := "✅ есть ссылка"
		if ch.JoinLink == "" {
			status = "❌ нет ссылки"
		}
		s.printf("      • %s: %s\n", ch.Title(), status)
	}
	if report.After.Missing() > 0 {
		return report, ErrLinksMissing
	}
	return report, nil
}

// ValidateProbe отправляет пробную проверку ссылки и печатает решение бэкенда.
func (s *Service) ValidateProbe(ctx context.Context, params domain.ValidateJoinParams) (domain.ValidationOutcome, error) {
	s.printf("🧪 validate-join: link=%s user=%d channel=%d\n", params.InviteLink, params.UserID, params.ChannelID)
	outcome, err := s.backend.ValidateJoin(ctx, params)
	if err != nil {
		s.printf("   ❌ %v\n", err)
		return domain.ValidationOutcome{}, fmt.Errorf("validate-join: %w", err)
	}
	s.printf("   approve: %t\n", outcome.Approve)
	if outcome.Reason != "" {
		s.printf("   reason: %s\n", outcome.Reason)
	}
	return outcome, nil
}

func auditChannels(list []domain.ManagedChannel) LinkAudit {
	audit := LinkAudit{Total: len(list), Channels: list}
	for _, ch := range list {
		if ch.JoinLink != "" {
			continue
		}
		if ch.IsLegacy {
			audit.Legacy = append(audit.Legacy, ch)
		} else {
			audit.Modern = append(audit.Modern, ch)
		}
	}
	return audit
}

func generateLinkPath(ch domain.ManagedChannel) string {
	return fmt.Sprintf("/api/groups/%s/channels/%s/generate-link", ch.GroupID, ch.DBID)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func orMissing(s string) string {
	if s == "" {
		return "MISSING"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
