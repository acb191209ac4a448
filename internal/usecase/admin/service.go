package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/usecase/channels"
)

var (
	// ErrNotAdmin: команда доступна только администраторам.
	ErrNotAdmin = errors.New("доступ запрещён: требуются права администратора")
	// ErrDurationRequired: /getlink вызван без аргумента.
	ErrDurationRequired = errors.New("не указана длительность ссылки")
)

const probeTimeout = 10 * time.Second

// Registry: часть реестра каналов, которой пользуются команды.
type Registry interface {
	Refresh(ctx context.Context) (channels.RefreshStats, error)
	Size() int
	LoadedAt() time.Time
	List() []domain.ManagedChannel
}

// StatusReport: данные для /status.
type StatusReport struct {
	Channels   int
	LoadedAt   time.Time
	Admins     int
	BackendURL string
	BackendErr error
	CheckedAt  time.Time
}

// BackendOK сообщает, ответил ли бэкенд успешно.
func (r StatusReport) BackendOK() bool {
	return r.BackendErr == nil
}

// TestLink: сгенерированная тестовая ссылка.
type TestLink struct {
	URL      string
	Raw      string
	Duration domain.InviteDuration
}

// Service реализует админские команды бота.
type Service struct {
	registry   Registry
	issuer     domain.InviteIssuer
	probe      domain.BackendProbe
	allow      AllowList
	backendURL string
	log        zerolog.Logger
	now        func() time.Time
}

// NewService создаёт сервис админских команд.
func NewService(registry Registry, issuer domain.InviteIssuer, probe domain.BackendProbe, allow AllowList, backendURL string, logger zerolog.Logger) *Service {
	return &Service{
		registry:   registry,
		issuer:     issuer,
		probe:      probe,
		allow:      allow,
		backendURL: backendURL,
		log:        logger,
		now:        time.Now,
	}
}

// IsAdmin проверяет права пользователя.
func (s *Service) IsAdmin(callerID int64) bool {
	return s.allow.Allows(callerID)
}

// ChannelCount возвращает размер реестра для приветствия.
func (s *Service) ChannelCount() int {
	return s.registry.Size()
}

// BackendURL: адрес бэкенда из конфига.
func (s *Service) BackendURL() string {
	return s.backendURL
}

// Status собирает отчёт о состоянии бота и доступности бэкенда.
func (s *Service) Status(ctx context.Context, callerID int64) (StatusReport, error) {
	if !s.IsAdmin(callerID) {
		return StatusReport{}, ErrNotAdmin
	}
	report := StatusReport{
		Channels:   s.registry.Size(),
		LoadedAt:   s.registry.LoadedAt(),
		Admins:     s.allow.Len(),
		BackendURL: s.backendURL,
	}
	if s.probe == nil {
		report.BackendErr = errors.New("проверка бэкенда не настроена")
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		report.BackendErr = s.probe.Ping(probeCtx)
		cancel()
	}
	report.CheckedAt = s.now()
	return report, nil
}

// Reload принудительно обновляет реестр каналов.
func (s *Service) Reload(ctx context.Context, callerID int64) (channels.RefreshStats, error) {
	if !s.IsAdmin(callerID) {
		return channels.RefreshStats{}, ErrNotAdmin
	}
	stats, err := s.registry.Refresh(ctx)
	if err != nil {
		return channels.RefreshStats{}, fmt.Errorf("обновление реестра: %w", err)
	}
	s.log.Info().Int64("admin", callerID).Int("before", stats.Before).Int("after", stats.After).Msg("реестр обновлён по команде")
	return stats, nil
}

// Channels возвращает управляемые каналы.
func (s *Service) Channels(callerID int64) ([]domain.ManagedChannel, error) {
	if !s.IsAdmin(callerID) {
		return nil, ErrNotAdmin
	}
	return s.registry.List(), nil
}

// GenerateTestLink просит бэкенд выпустить тестовую ссылку для администратора.
func (s *Service) GenerateTestLink(ctx context.Context, callerID int64, rawDuration string) (TestLink, error) {
	if !s.IsAdmin(callerID) {
		return TestLink{}, ErrNotAdmin
	}
	raw := strings.ToLower(strings.TrimSpace(rawDuration))
	if raw == "" {
		return TestLink{}, ErrDurationRequired
	}
	duration, err := ParseInviteDuration(raw)
	if err != nil {
		return TestLink{}, err
	}
	link, err := s.issuer.GenerateTestLink(ctx, domain.TestLinkParams{
		UserID:   callerID,
		AdminID:  callerID,
		Duration: duration,
	})
	if err != nil {
		return TestLink{}, fmt.Errorf("генерация тестовой ссылки: %w", err)
	}
	s.log.Info().Int64("admin", callerID).Dur("duration", duration.Duration()).Msg("выпущена тестовая ссылка")
	return TestLink{URL: link, Raw: raw, Duration: duration}, nil
}
