package domain

import (
	"context"
	"time"
)

// ChannelSource отдаёт полный список активных каналов.
type ChannelSource interface {
	ListActiveChannels(ctx context.Context) ([]ManagedChannel, error)
}

// JoinValidator проверяет заявки и принимает уведомления о вступлении.
type JoinValidator interface {
	ValidateJoin(ctx context.Context, params ValidateJoinParams) (ValidationOutcome, error)
	NotifyJoined(ctx context.Context, n JoinNotification) error
}

// InviteIssuer генерирует тестовые пригласительные ссылки.
type InviteIssuer interface {
	GenerateTestLink(ctx context.Context, params TestLinkParams) (string, error)
}

// BackendProbe проверяет доступность бэкенда.
type BackendProbe interface {
	Ping(ctx context.Context) error
}

// ChannelDirectory: кэш управляемых каналов.
type ChannelDirectory interface {
	Lookup(channelID int64) (ManagedChannel, bool)
}

// Platform: действия, которые бот выполняет в Telegram.
type Platform interface {
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	DeclineJoinRequest(ctx context.Context, chatID, userID int64) error
	RevokeInviteLink(ctx context.Context, chatID int64, link string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Deduplicator выполняет fn не более одного раза для ключа в пределах ttl.
type Deduplicator interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}
