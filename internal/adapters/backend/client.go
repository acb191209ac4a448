package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/infra/metrics"
)

const maxErrorBody = 2048

// Client ходит в HTTP API платёжного бэкенда.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL возвращает адрес бэкенда для отчётов.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListActiveChannels возвращает все активные каналы.
func (c *Client) ListActiveChannels(ctx context.Context) ([]domain.ManagedChannel, error) {
	var resp activeChannelsResponse
	if err := c.get(ctx, "list_active_channels", "/api/groups/active", &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, fmt.Errorf("backend /api/groups/active: success=false: %s", resp.Message)
	}
	if resp.ActiveChannels == nil {
		return nil, fmt.Errorf("backend /api/groups/active: поле active_channels отсутствует")
	}
	channels := make([]domain.ManagedChannel, 0, len(resp.ActiveChannels))
	for _, ch := range resp.ActiveChannels {
		channels = append(channels, ch.toDomain())
	}
	return channels, nil
}

// ValidateJoin спрашивает бэкенд, можно ли пустить пользователя.
func (c *Client) ValidateJoin(ctx context.Context, params domain.ValidateJoinParams) (domain.ValidationOutcome, error) {
	payload := validateJoinRequest{
		InviteLink:     params.InviteLink,
		TelegramUserID: formatID(params.UserID),
		ChannelID:      formatID(params.ChannelID),
		UserInfo: userInfo{
			FirstName: params.User.FirstName,
			LastName:  params.User.LastName,
			Username:  params.User.Username,
		},
		ChannelInfo: channelInfo{
			AdminID:     params.Channel.AdminID,
			GroupID:     params.Channel.GroupID,
			ChannelName: params.Channel.Name,
		},
	}
	var resp validateJoinResponse
	if err := c.post(ctx, "validate_join", "/api/telegram/validate-join", payload, &resp); err != nil {
		return domain.ValidationOutcome{}, err
	}
	return domain.ValidationOutcome{Approve: resp.Approve, Reason: resp.Reason}, nil
}

// NotifyJoined сообщает бэкенду время вступления; ответ игнорируется.
func (c *Client) NotifyJoined(ctx context.Context, n domain.JoinNotification) error {
	payload := userJoinedRequest{
		InviteLink:     n.InviteLink,
		TelegramUserID: formatID(n.UserID),
		ChannelID:      formatID(n.ChannelID),
		JoinedAt:       n.JoinedAt.UTC().Format(time.RFC3339),
		Action:         n.Action,
	}
	return c.post(ctx, "user_joined", "/api/telegram/user-joined", payload, nil)
}

// GenerateTestLink запрашивает тестовую ссылку заданной длительности.
func (c *Client) GenerateTestLink(ctx context.Context, params domain.TestLinkParams) (string, error) {
	payload := testLinkRequest{
		TelegramUserID: formatID(params.UserID),
		Duration:       params.Duration.Seconds,
		AdminID:        formatID(params.AdminID),
		TestMode:       true,
	}
	var resp testLinkResponse
	if err := c.post(ctx, "generate_test_link", "/api/invite/generate-test-link", payload, &resp); err != nil {
		return "", err
	}
	if resp.InviteLink == "" {
		return "", fmt.Errorf("backend /api/invite/generate-test-link: пустая ссылка в ответе")
	}
	return resp.InviteLink, nil
}

// GenerateChannelLink перевыпускает постоянную ссылку канала.
func (c *Client) GenerateChannelLink(ctx context.Context, groupID, channelDBID string) (string, error) {
	group, err := pathSegment(groupID)
	if err != nil {
		return "", err
	}
	channel, err := pathSegment(channelDBID)
	if err != nil {
		return "", err
	}
	endpoint := "/api/groups/" + group + "/channels/" + channel + "/generate-link"
	var resp channelLinkResponse
	if err := c.post(ctx, "generate_channel_link", endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.InviteLink, nil
}

// Ping проверяет конфигурационный эндпоинт бэкенда.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "test_config", "/api/payment/test-config", nil)
}

// Health возвращает состояние бэкенда.
func (c *Client) Health(ctx context.Context) (domain.BackendHealth, error) {
	var resp healthResponse
	if err := c.get(ctx, "health", "/health", &resp); err != nil {
		return domain.BackendHealth{}, err
	}
	return domain.BackendHealth{Status: resp.Status, DBStatus: resp.DBStatus, Port: string(resp.Port)}, nil
}

// ExpiryStats возвращает статистику сервиса истечения доступа.
func (c *Client) ExpiryStats(ctx context.Context) (domain.ExpiryStats, error) {
	var resp expiryStatsResponse
	if err := c.get(ctx, "expiry_stats", "/api/admin/expiry-stats", &resp); err != nil {
		return domain.ExpiryStats{}, err
	}
	return domain.ExpiryStats{
		ServiceRunning: resp.ServiceRunning,
		ActiveMembers:  resp.TotalActiveMembers,
		ExpiredMembers: resp.ExpiredMembers,
		ExpiringIn24h:  resp.ExpiringIn24h,
	}, nil
}

// KickExpired вручную запускает удаление истёкших участников.
func (c *Client) KickExpired(ctx context.Context) (domain.KickResult, error) {
	var resp kickExpiredResponse
	if err := c.post(ctx, "kick_expired", "/api/admin/kick-expired", nil, &resp); err != nil {
		return domain.KickResult{}, err
	}
	return domain.KickResult{Message: resp.Message, Timestamp: string(resp.Timestamp)}, nil
}

// CheckExpiry спрашивает, истёк ли доступ пользователя.
func (c *Client) CheckExpiry(ctx context.Context, userID int64) (domain.ExpiryCheck, error) {
	var resp checkExpiryResponse
	if err := c.get(ctx, "check_expiry", "/api/telegram/check-expiry/"+formatID(userID), &resp); err != nil {
		return domain.ExpiryCheck{}, err
	}
	return domain.ExpiryCheck{ShouldKick: resp.ShouldKick, Reason: resp.Reason}, nil
}

// NotifyKick сообщает бэкенду об удалении пользователя и возвращает его ответ.
func (c *Client) NotifyKick(ctx context.Context, n domain.KickNotification) (string, error) {
	payload := notifyKickRequest{
		TelegramUserID: formatID(n.UserID),
		Reason:         n.Reason,
		ChannelID:      formatID(n.ChannelID),
	}
	var resp messageResponse
	if err := c.post(ctx, "notify_kick", "/api/telegram/notify-kick", payload, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ChannelMembers возвращает участников, которых отслеживает бэкенд.
func (c *Client) ChannelMembers(ctx context.Context) ([]domain.ChannelMember, error) {
	var resp channelMembersResponse
	if err := c.get(ctx, "channel_members", "/api/channel-members", &resp); err != nil {
		return nil, err
	}
	members := make([]domain.ChannelMember, 0, len(resp.Members))
	for _, m := range resp.Members {
		members = append(members, domain.ChannelMember{
			UserID:    string(m.TelegramUserID),
			ChannelID: string(m.ChannelID),
			IsActive:  m.IsActive,
		})
	}
	return members, nil
}

// RequestRecovery отправляет запрос на восстановление доступа.
func (c *Client) RequestRecovery(ctx context.Context, r domain.RecoveryRequest) error {
	payload := recoveryRequest{
		TelegramUserID: formatID(r.UserID),
		ChannelID:      formatID(r.ChannelID),
		Reason:         r.Reason,
	}
	return c.post(ctx, "request_recovery", "/api/telegram/request-recovery", payload, nil)
}

func (c *Client) get(ctx context.Context, op, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(op, endpoint, req, out)
}

func (c *Client) post(ctx context.Context, op, endpoint string, body any, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	return c.do(op, endpoint, req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	resolved := *c.baseURL
	rawPath := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + endpoint
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("build path: %w", err)
	}
	resolved.Path = decoded
	resolved.RawPath = rawPath
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// pathSegment экранирует идентификатор для подстановки в путь.
// Пустые и точечные сегменты меняют адрес эндпоинта, поэтому отвергаются.
func pathSegment(id string) (string, error) {
	switch strings.TrimSpace(id) {
	case "", ".", "..":
		return "", fmt.Errorf("недопустимый идентификатор в пути: %q", id)
	}
	return url.PathEscape(id), nil
}

func (c *Client) do(op, endpoint string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("backend", op, start, err)
		return fmt.Errorf("backend %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &domain.BackendStatusError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(data)),
		}
		metrics.ObserveNetworkRequest("backend", op, start, statusErr)
		return statusErr
	}
	metrics.ObserveNetworkRequest("backend", op, start, nil)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", endpoint, err)
	}
	return nil
}

var (
	_ domain.ChannelSource = (*Client)(nil)
	_ domain.JoinValidator = (*Client)(nil)
	_ domain.InviteIssuer  = (*Client)(nil)
	_ domain.BackendProbe  = (*Client)(nil)
)
