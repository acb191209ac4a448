package diagnostics

import (
	"context"
	"errors"
	"fmt"

	"tg-channel-gate/internal/domain"
)

// E2EParams: тестовые данные сквозной проверки.
type E2EParams struct {
	UserID     int64
	ChannelID  int64
	InviteLink string
}

const e2eLinkSeconds = 3600

// E2E проходит путь бот → бэкенд целиком. Без рабочего бота или бэкенда
// остальные шаги не выполняются.
func (s *Service) E2E(ctx context.Context, p E2EParams) (CheckReport, error) {
	c := s.checklist("Сквозная проверка бота и бэкенда")

	ok := c.run("Токен бота (getMe)", func() error {
		if s.bot == nil {
			return errors.New("токен бота не задан")
		}
		me, err := s.bot.Identity(ctx)
		if err != nil {
			return err
		}
		s.printf("   🤖 @%s (ID: %d, %s)\n", me.Username, me.ID, orNA(me.FirstName))
		return nil
	})
	if !ok {
		return c.finish()
	}

	ok = c.run("Бэкенд /health", func() error {
		health, err := s.backend.Health(ctx)
		if err != nil {
			return err
		}
		s.printf("   Status: %s\n", orNA(health.Status))
		s.printf("   DB Status: %s\n", orNA(health.DBStatus))
		return nil
	})
	if !ok {
		return c.finish()
	}

	c.run("Генерация тестовой ссылки", func() error {
		link, err := s.backend.GenerateTestLink(ctx, domain.TestLinkParams{
			UserID:   p.UserID,
			AdminID:  p.UserID,
			Duration: domain.InviteDuration{Seconds: e2eLinkSeconds},
		})
		if err != nil {
			return err
		}
		s.printf("   🔗 %s\n", truncate(link, 50))
		return nil
	})

	c.run("validate-join", func() error {
		outcome, err := s.backend.ValidateJoin(ctx, domain.ValidateJoinParams{
			InviteLink: p.InviteLink,
			UserID:     p.UserID,
			ChannelID:  p.ChannelID,
			User:       domain.UserInfo{FirstName: "Test", LastName: "User", Username: "testuser"},
			Channel:    domain.ManagedChannel{ChannelID: p.ChannelID},
		})
		if err != nil {
			return err
		}
		s.printf("   approve: %t\n", outcome.Approve)
		s.printf("   reason: %s\n", orNA(outcome.Reason))
		return nil
	})

	c.run("check-expiry", func() error {
		check, err := s.backend.CheckExpiry(ctx, p.UserID)
		if err != nil {
			return err
		}
		s.printf("   shouldKick: %t\n", check.ShouldKick)
		s.printf("   reason: %s\n", orNA(check.Reason))
		return nil
	})

	c.run("user-joined", func() error {
		return s.backend.NotifyJoined(ctx, domain.JoinNotification{
			InviteLink: p.InviteLink,
			UserID:     p.UserID,
			ChannelID:  p.ChannelID,
			JoinedAt:   s.now(),
		})
	})

	c.run("Активные каналы", func() error {
		list, err := s.backend.ListActiveChannels(ctx)
		if err != nil {
			return fmt.Errorf("active channels: %w", err)
		}
		s.printf("   Найдено: %d\n", len(list))
		for i, ch := range list {
			s.printf("   %d. %s (ID: %d)\n", i+1, ch.Title(), ch.ChannelID)
		}
		return nil
	})

	return c.finish()
}
