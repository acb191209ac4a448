package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tg-channel-gate/internal/domain"
)

// ExpiryReport: статистика истечения доступа, а при ручном запуске ещё и результат удаления.
type ExpiryReport struct {
	Before domain.ExpiryStats
	Kick   *domain.KickResult
	After  *domain.ExpiryStats
}

// Expiry печатает статистику сервиса истечения. С kick вручную запускает
// удаление истёкших участников и печатает статистику повторно.
func (s *Service) Expiry(ctx context.Context, kick bool) (ExpiryReport, error) {
	s.printf("⏰ Сервис истечения доступа\n%s\n", rule)
	var report ExpiryReport
	stats, err := s.backend.ExpiryStats(ctx)
	if err != nil {
		s.printf("   ❌ Статистика недоступна: %v\n", err)
		return report, fmt.Errorf("expiry stats: %w", err)
	}
	report.Before = stats
	s.printStats(stats)
	if !kick {
		return report, nil
	}

	s.printf("\n🚫 Ручной запуск удаления истёкших\n")
	res, err := s.backend.KickExpired(ctx)
	if err != nil {
		s.printf("   ❌ %v\n", err)
		return report, fmt.Errorf("kick expired: %w", err)
	}
	report.Kick = &res
	s.printf("   ✅ %s\n", orNA(res.Message))
	s.printf("   🕐 Timestamp: %s\n", orNA(res.Timestamp))

	s.printf("\n📊 После запуска\n")
	after, err := s.backend.ExpiryStats(ctx)
	if err != nil {
		s.printf("   ❌ Статистика недоступна: %v\n", err)
		return report, fmt.Errorf("expiry stats: %w", err)
	}
	report.After = &after
	s.printStats(after)
	return report, nil
}

func (s *Service) printStats(st domain.ExpiryStats) {
	state := "Stopped"
	if st.ServiceRunning {
		state = "Running"
	}
	s.printf("   🏃 Service: %s\n", state)
	s.printf("   📊 Active members: %d\n", st.ActiveMembers)
	s.printf("   ⏰ Expired members: %d\n", st.ExpiredMembers)
	s.printf("   🔔 Expiring in 24h: %d\n", st.ExpiringIn24h)
}

// CheckExpiry печатает решение бэкенда об истечении доступа пользователя.
func (s *Service) CheckExpiry(ctx context.Context, userID int64) (domain.ExpiryCheck, error) {
	s.printf("🔎 check-expiry: user=%d\n", userID)
	check, err := s.backend.CheckExpiry(ctx, userID)
	if err != nil {
		s.printf("   ❌ %v\n", err)
		return domain.ExpiryCheck{}, fmt.Errorf("check-expiry: %w", err)
	}
	s.printf("   shouldKick: %t\n", check.ShouldKick)
	s.printf("   reason: %s\n", orNA(check.Reason))
	return check, nil
}

// RemovalParams: тестовый пользователь и канал для проверки удаления.
type RemovalParams struct {
	UserID    int64
	ChannelID int64
}

// Removal проверяет цепочку удаления: статистику, права бота в канале,
// уведомление о кике, учёт участников и восстановление доступа.
func (s *Service) Removal(ctx context.Context, p RemovalParams) (CheckReport, error) {
	c := s.checklist("Проверка системы удаления участников")

	c.run("Статистика истечения", func() error {
		stats, err := s.backend.ExpiryStats(ctx)
		if err != nil {
			return err
		}
		s.printStats(stats)
		if !stats.ServiceRunning {
			return errors.New("сервис истечения остановлен")
		}
		return nil
	})

	c.run("Права бота в канале", func() error {
		if s.bot == nil {
			return skip("токен бота не задан")
		}
		access, err := s.bot.ChannelAccess(ctx, p.ChannelID)
		if err != nil {
			return err
		}
		s.printf("   📺 %s (%s)\n", orNA(access.Title), orNA(access.Type))
		if !access.IsAdmin {
			return errors.New("бот не администратор канала и не сможет удалять участников")
		}
		return nil
	})

	c.run("Уведомление о кике", func() error {
		msg, err := s.backend.NotifyKick(ctx, domain.KickNotification{
			UserID:    p.UserID,
			ChannelID: p.ChannelID,
			Reason:    "Test kick notification",
		})
		if err != nil {
			return err
		}
		s.printf("   📋 %s\n", orNA(msg))
		return nil
	})

	c.run("Учёт участников", func() error {
		members, err := s.backend.ChannelMembers(ctx)
		if err != nil {
			return err
		}
		active := 0
		for _, m := range members {
			if m.IsActive {
				active++
			}
		}
		s.printf("   📊 Всего: %d\n", len(members))
		s.printf("   👥 Активных: %d\n", active)
		s.printf("   🚫 Удалённых: %d\n", len(members)-active)
		return nil
	})

	c.run("Восстановление доступа", func() error {
		err := s.backend.RequestRecovery(ctx, domain.RecoveryRequest{
			UserID:    p.UserID,
			ChannelID: p.ChannelID,
			Reason:    "Test recovery",
		})
		var statusErr *domain.BackendStatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return skip("на бэкенде не реализовано (404)")
		}
		return err
	})

	return c.finish()
}
