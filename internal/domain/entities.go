package domain

import "time"

// ManagedChannel описывает канал, вступление в который контролирует бот.
type ManagedChannel struct {
	ChannelID int64
	Name      string
	ChatTitle string
	AdminID   string
	GroupID   string
	IsLegacy  bool
	DBID      string
	JoinLink  string
}

// Title возвращает человекочитаемое название канала.
func (c ManagedChannel) Title() string {
	if c.ChatTitle != "" {
		return c.ChatTitle
	}
	if c.Name != "" {
		return c.Name
	}
	return "Unknown Channel"
}

// UserInfo содержит отображаемые данные пользователя Telegram.
type UserInfo struct {
	FirstName string
	LastName  string
	Username  string
}

// JoinRequest: одна заявка на вступление в канал.
type JoinRequest struct {
	UserID     int64
	User       UserInfo
	ChannelID  int64
	ChatTitle  string
	InviteLink string
	At         time.Time
}

// HasLink сообщает, пришла ли заявка по пригласительной ссылке.
func (r JoinRequest) HasLink() bool {
	return r.InviteLink != ""
}

// ValidationOutcome: решение бэкенда по заявке.
type ValidationOutcome struct {
	Approve bool
	Reason  string
}

// ValidateJoinParams передаётся бэкенду для проверки ссылки.
type ValidateJoinParams struct {
	InviteLink string
	UserID     int64
	ChannelID  int64
	User       UserInfo
	Channel    ManagedChannel
}

// JoinNotification сообщает бэкенду о вступлении и отзыве ссылки.
type JoinNotification struct {
	InviteLink string
	UserID     int64
	ChannelID  int64
	JoinedAt   time.Time
	Action     string
}

// JoinActionJoinedAndRevoked: действие, которое бэкенд запускает таймер доступа.
const JoinActionJoinedAndRevoked = "joined_and_revoked"

// InviteDuration: нормализованная длительность тестовой ссылки.
type InviteDuration struct {
	Seconds int64
}

// Duration переводит длительность в time.Duration.
func (d InviteDuration) Duration() time.Duration {
	return time.Duration(d.Seconds) * time.Second
}

// TestLinkParams: запрос на генерацию тестовой ссылки.
type TestLinkParams struct {
	UserID   int64
	AdminID  int64
	Duration InviteDuration
}

// BackendHealth: ответ /health бэкенда.
type BackendHealth struct {
	Status   string
	DBStatus string
	Port     string
}

// ExpiryStats: состояние сервиса истечения доступа на бэкенде.
type ExpiryStats struct {
	ServiceRunning bool
	ActiveMembers  int
	ExpiredMembers int
	ExpiringIn24h  int
}

// KickResult: ответ бэкенда на ручной запуск удаления истёкших участников.
type KickResult struct {
	Message   string
	Timestamp string
}

// ExpiryCheck: решение бэкенда, нужно ли удалить пользователя.
type ExpiryCheck struct {
	ShouldKick bool
	Reason     string
}

// KickNotification сообщает бэкенду об удалении пользователя из канала.
type KickNotification struct {
	UserID    int64
	ChannelID int64
	Reason    string
}

// RecoveryRequest просит бэкенд восстановить доступ пользователя.
type RecoveryRequest struct {
	UserID    int64
	ChannelID int64
	Reason    string
}

// ChannelMember: участник канала, которого отслеживает бэкенд.
type ChannelMember struct {
	UserID    string
	ChannelID string
	IsActive  bool
}

// BotIdentity: ответ getMe.
type BotIdentity struct {
	ID        int64
	Username  string
	FirstName string
}

// ChannelAccess описывает доступ бота к каналу.
type ChannelAccess struct {
	Title   string
	Type    string
	IsAdmin bool
}
