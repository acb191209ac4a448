package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/infra/metrics"
)

// goneTokens: коды ошибок Bot API, означающие, что заявки уже нет.
var goneTokens = []string{
	"HIDE_REQUESTER_MISSING",
	"USER_ALREADY_PARTICIPANT",
	"CHAT_JOIN_REQUEST_NOT_FOUND",
}

// Requester: часть tgbotapi.BotAPI, которой достаточно адаптеру.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Platform выполняет действия с заявками и сообщениями через Bot API.
type Platform struct {
	api Requester
}

// NewPlatform создаёт адаптер поверх клиента бота.
func NewPlatform(api Requester) *Platform {
	return &Platform{api: api}
}

// ApproveJoinRequest одобряет заявку пользователя.
func (p *Platform) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
	return p.request(ctx, "approve_join_request", cfg)
}

// DeclineJoinRequest отклоняет заявку пользователя.
func (p *Platform) DeclineJoinRequest(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
	return p.request(ctx, "decline_join_request", cfg)
}

// RevokeInviteLink отзывает пригласительную ссылку канала.
func (p *Platform) RevokeInviteLink(ctx context.Context, chatID int64, link string) error {
	cfg := tgbotapi.RevokeChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		InviteLink: link,
	}
	return p.request(ctx, "revoke_invite_link", cfg)
}

// SendMessage отправляет сообщение, разбивая длинный текст на части.
func (p *Platform) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		start := time.Now()
		err := p.call(ctx, func() error {
			_, err := p.api.Send(msg)
			return err
		})
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", start, err)
		if err != nil {
			return fmt.Errorf("send message to %d: %w", chatID, err)
		}
	}
	return nil
}

func (p *Platform) request(ctx context.Context, op string, c tgbotapi.Chattable) error {
	start := time.Now()
	err := p.call(ctx, func() error {
		_, err := p.api.Request(c)
		return err
	})
	metrics.ObserveNetworkRequest("telegram_bot", op, start, err)
	if err != nil {
		return classify(op, err)
	}
	return nil
}

func (p *Platform) call(ctx context.Context, fn func() error) error {
	return call(ctx, fn)
}

// call ограничивает ожидание ответа Bot API контекстом.
// Сам HTTP-запрос библиотеки контекст не принимает и завершится в фоне.
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classify(op string, err error) error {
	if IsRequestGone(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrJoinRequestGone, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRequestGone распознаёт ответ Bot API об уже обработанной заявке.
func IsRequestGone(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != 400 {
		return false
	}
	upper := strings.ToUpper(apiErr.Message)
	for _, token := range goneTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

var _ domain.Platform = (*Platform)(nil)
