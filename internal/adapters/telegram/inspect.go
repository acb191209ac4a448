package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/infra/metrics"
)

// Reader: методы tgbotapi.BotAPI для проверки прав бота.
type Reader interface {
	GetMe() (tgbotapi.User, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// Inspector отвечает на диагностические вопросы о боте.
type Inspector struct {
	api Reader
}

// NewInspector создаёт Inspector поверх клиента бота.
func NewInspector(api Reader) *Inspector {
	return &Inspector{api: api}
}

// DialInspector создаёт клиент без запроса getMe, токен проверяет Identity.
// Пустой endpoint означает публичный Bot API.
func DialInspector(token, endpoint string, timeout time.Duration) *Inspector {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api := &tgbotapi.BotAPI{
		Token:  token,
		Buffer: 100,
		Client: &http.Client{Timeout: timeout},
	}
	api.SetAPIEndpoint(endpoint)
	return NewInspector(api)
}

// Identity вызывает getMe.
func (i *Inspector) Identity(ctx context.Context) (domain.BotIdentity, error) {
	var me tgbotapi.User
	start := time.Now()
	err := call(ctx, func() error {
		var err error
		me, err = i.api.GetMe()
		return err
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_me", start, err)
	if err != nil {
		return domain.BotIdentity{}, fmt.Errorf("getMe: %w", err)
	}
	return domain.BotIdentity{ID: me.ID, Username: me.UserName, FirstName: me.FirstName}, nil
}

// ChannelAccess проверяет, видит ли бот канал и является ли он администратором.
func (i *Inspector) ChannelAccess(ctx context.Context, chatID int64) (domain.ChannelAccess, error) {
	me, err := i.Identity(ctx)
	if err != nil {
		return domain.ChannelAccess{}, err
	}
	chatCfg := tgbotapi.ChatConfig{ChatID: chatID}

	var chat tgbotapi.Chat
	start := time.Now()
	err = call(ctx, func() error {
		var err error
		chat, err = i.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatCfg})
		return err
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat", start, err)
	if err != nil {
		return domain.ChannelAccess{}, fmt.Errorf("getChat %d: %w", chatID, err)
	}
	access := domain.ChannelAccess{Title: chat.Title, Type: chat.Type}

	var admins []tgbotapi.ChatMember
	start = time.Now()
	err = call(ctx, func() error {
		var err error
		admins, err = i.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{ChatConfig: chatCfg})
		return err
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_administrators", start, err)
	if err != nil {
		return access, fmt.Errorf("getChatAdministrators %d: %w", chatID, err)
	}
	for _, a := range admins {
		if a.User != nil && a.User.ID == me.ID {
			access.IsAdmin = true
			break
		}
	}
	return access, nil
}
