package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tg-channel-gate/internal/domain"
)

type activeChannelsResponse struct {
	Success        *bool           `json:"success"`
	Message        string          `json:"message"`
	ActiveChannels []activeChannel `json:"active_channels"`
}

type activeChannel struct {
	ChannelID   flexString `json:"channel_id"`
	AdminID     flexString `json:"admin_id"`
	Name        string     `json:"name"`
	GroupID     flexString `json:"group_id"`
	ChatTitle   string     `json:"chat_title"`
	IsLegacy    bool       `json:"is_legacy"`
	ChannelDBID flexString `json:"channel_db_id"`
	JoinLink    *string    `json:"join_link"`
}

// toDomain оставляет ChannelID нулевым, если идентификатор не число.
func (a activeChannel) toDomain() domain.ManagedChannel {
	id, _ := strconv.ParseInt(strings.TrimSpace(string(a.ChannelID)), 10, 64)
	ch := domain.ManagedChannel{
		ChannelID: id,
		Name:      a.Name,
		ChatTitle: a.ChatTitle,
		AdminID:   string(a.AdminID),
		GroupID:   string(a.GroupID),
		IsLegacy:  a.IsLegacy,
		DBID:      string(a.ChannelDBID),
	}
	if a.JoinLink != nil {
		ch.JoinLink = *a.JoinLink
	}
	return ch
}

type userInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type channelInfo struct {
	AdminID     string `json:"admin_id"`
	GroupID     string `json:"group_id"`
	ChannelName string `json:"channel_name"`
}

type validateJoinRequest struct {
	InviteLink     string      `json:"invite_link"`
	TelegramUserID string      `json:"telegram_user_id"`
	ChannelID      string      `json:"channel_id"`
	UserInfo       userInfo    `json:"user_info"`
	ChannelInfo    channelInfo `json:"channel_info"`
}

type validateJoinResponse struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

type userJoinedRequest struct {
	InviteLink     string `json:"invite_link"`
	TelegramUserID string `json:"telegram_user_id"`
	ChannelID      string `json:"channel_id"`
	JoinedAt       string `json:"joined_at"`
	Action         string `json:"action,omitempty"`
}

type testLinkRequest struct {
	TelegramUserID string `json:"telegram_user_id"`
	Duration       int64  `json:"duration"`
	AdminID        string `json:"admin_id"`
	TestMode       bool   `json:"test_mode"`
}

type testLinkResponse struct {
	InviteLink string `json:"invite_link"`
}

type channelLinkResponse struct {
	InviteLink string `json:"inviteLink"`
}

type healthResponse struct {
	Status   string     `json:"status"`
	DBStatus string     `json:"dbStatus"`
	Port     flexString `json:"port"`
}

// flexString принимает строку, число или null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ожидалась строка или число: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type expiryStatsResponse struct {
	ServiceRunning     bool `json:"serviceRunning"`
	TotalActiveMembers int  `json:"totalActiveMembers"`
	ExpiredMembers     int  `json:"expiredMembers"`
	ExpiringIn24h      int  `json:"expiringIn24h"`
}

type kickExpiredResponse struct {
	Message   string     `json:"message"`
	Timestamp flexString `json:"timestamp"`
}

type checkExpiryResponse struct {
	ShouldKick bool   `json:"shouldKick"`
	Reason     string `json:"reason"`
}

type notifyKickRequest struct {
	TelegramUserID string `json:"telegram_user_id"`
	Reason         string `json:"reason"`
	ChannelID      string `json:"channel_id"`
}

type recoveryRequest struct {
	TelegramUserID string `json:"telegram_user_id"`
	ChannelID      string `json:"channel_id"`
	Reason         string `json:"reason"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type channelMembersResponse struct {
	Members []channelMember `json:"members"`
}

type channelMember struct {
	TelegramUserID flexString `json:"telegramUserId"`
	ChannelID      flexString `json:"channelId"`
	IsActive       bool       `json:"isActive"`
}
