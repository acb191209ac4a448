package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-channel-gate/internal/domain"
)

type fakeBackend struct {
	health     domain.BackendHealth
	healthErr  error
	lists      [][]domain.ManagedChannel
	listErr    error
	listCalls  int
	generated  []string
	genErr     map[string]error
	outcome    domain.ValidationOutcome
	validate   []domain.ValidateJoinParams
	validateEr error

	testLink    string
	testLinkErr error
	joined      []domain.JoinNotification
	stats       []domain.ExpiryStats
	statsErr    error
	statsCalls  int
	kick        domain.KickResult
	kickErr     error
	kicks       int
	expiry      domain.ExpiryCheck
	expiryUsers []int64
	kicked      []domain.KickNotification
	members     []domain.ChannelMember
	recoveryErr error
	recoveries  []domain.RecoveryRequest
	calls       []string
}

func (f *fakeBackend) BaseURL() string { return "http://backend" }

func (f *fakeBackend) Health(ctx context.Context) (domain.BackendHealth, error) {
	f.calls = append(f.calls, "health")
	return f.health, f.healthErr
}

func (f *fakeBackend) ListActiveChannels(ctx context.Context) ([]domain.ManagedChannel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	i := f.listCalls
	f.listCalls++
	if i >= len(f.lists) {
		i = len(f.lists) - 1
	}
	return f.lists[i], nil
}

func (f *fakeBackend) GenerateChannelLink(ctx context.Context, groupID, channelDBID string) (string, error) {
	f.generated = append(f.generated, groupID+"/"+channelDBID)
	if err := f.genErr[channelDBID]; err != nil {
		return "", err
	}
	return "https://t.me/+" + channelDBID, nil
}

func (f *fakeBackend) ValidateJoin(ctx context.Context, params domain.ValidateJoinParams) (domain.ValidationOutcome, error) {
	f.calls = append(f.calls, "validate")
	f.validate = append(f.validate, params)
	return f.outcome, f.validateEr
}

func (f *fakeBackend) GenerateTestLink(ctx context.Context, params domain.TestLinkParams) (string, error) {
	f.calls = append(f.calls, "test_link")
	return f.testLink, f.testLinkErr
}

func (f *fakeBackend) NotifyJoined(ctx context.Context, n domain.JoinNotification) error {
	f.calls = append(f.calls, "joined")
	f.joined = append(f.joined, n)
	return nil
}

func (f *fakeBackend) ExpiryStats(ctx context.Context) (domain.ExpiryStats, error) {
	f.calls = append(f.calls, "stats")
	if f.statsErr != nil {
		return domain.ExpiryStats{}, f.statsErr
	}
	i := f.statsCalls
	f.statsCalls++
	if i >= len(f.stats) {
		i = len(f.stats) - 1
	}
	return f.stats[i], nil
}

func (f *fakeBackend) KickExpired(ctx context.Context) (domain.KickResult, error) {
	f.calls = append(f.calls, "kick")
	f.kicks++
	return f.kick, f.kickErr
}

func (f *fakeBackend) CheckExpiry(ctx context.Context, userID int64) (domain.ExpiryCheck, error) {
	f.calls = append(f.calls, "check_expiry")
	f.expiryUsers = append(f.expiryUsers, userID)
	return f.expiry, nil
}

func (f *fakeBackend) NotifyKick(ctx context.Context, n domain.KickNotification) (string, error) {
	f.calls = append(f.calls, "notify_kick")
	f.kicked = append(f.kicked, n)
	return "ok", nil
}

func (f *fakeBackend) ChannelMembers(ctx context.Context) ([]domain.ChannelMember, error) {
	f.calls = append(f.calls, "members")
	return f.members, nil
}

func (f *fakeBackend) RequestRecovery(ctx context.Context, r domain.RecoveryRequest) error {
	f.calls = append(f.calls, "recovery")
	f.recoveries = append(f.recoveries, r)
	return f.recoveryErr
}

type fakeBot struct {
	me        domain.BotIdentity
	meErr     error
	access    domain.ChannelAccess
	accessErr error
	chats     []int64
}

func (b *fakeBot) Identity(ctx context.Context) (domain.BotIdentity, error) {
	return b.me, b.meErr
}

func (b *fakeBot) ChannelAccess(ctx context.Context, chatID int64) (domain.ChannelAccess, error) {
	b.chats = append(b.chats, chatID)
	return b.access, b.accessErr
}

var (
	withLink = domain.ManagedChannel{ChannelID: 1, Name: "ok", JoinLink: "https://t.me/+ok", GroupID: "g", DBID: "c1"}
	legacy   = domain.ManagedChannel{ChannelID: 2, Name: "old", IsLegacy: true, GroupID: "g", DBID: "c2"}
	modern   = domain.ManagedChannel{ChannelID: 3, Name: "new", GroupID: "g", DBID: "c3"}
)

func TestHealthPrintsStatusAndChannels(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{
		health: domain.BackendHealth{Status: "ok", DBStatus: "connected", Port: "4000"},
		lists:  [][]domain.ManagedChannel{{withLink, modern}},
	}
	require.NoError(t, NewService(b, &out).Health(context.Background()))
	assert.Contains(t, out.String(), "DB Status: connected")
	assert.Contains(t, out.String(), "Найдено: 2")
	assert.Contains(t, out.String(), "2. new (ID: 3)")
}

func TestHealthFailure(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{healthErr: errors.New("connection refused")}
	err := NewService(b, &out).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, out.String(), "connection refused")
}

func TestAuditLinksSplitsLegacyAndModern(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{lists: [][]domain.ManagedChannel{{withLink, legacy, modern}}}
	audit, err := NewService(b, &out).AuditLinks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, audit.Total)
	assert.Equal(t, 2, audit.Missing())
	require.Len(t, audit.Legacy, 1)
	require.Len(t, audit.Modern, 1)
	assert.Equal(t, int64(2), audit.Legacy[0].ChannelID)
	assert.Contains(t, out.String(), "POST /api/groups/g/channels/c3/generate-link")
	assert.NotContains(t, out.String(), "channels/c2/generate-link")
	assert.Empty(t, b.generated, "аудит ничего не меняет")
}

func TestGenerateMissingLinksOnlyForModernChannels(t *testing.T) {
	var out bytes.Buffer
	fixed := modern
	fixed.JoinLink = "https://t.me/+c3"
	b := &fakeBackend{lists: [][]domain.ManagedChannel{{withLink, modern}, {withLink, fixed}}}

	report, err := NewService(b, &out).GenerateMissingLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []string{"g/c3"}, b.generated)
	assert.Zero(t, report.After.Missing())
}

func TestGenerateMissingLinksReportsFailures(t *testing.T) {
	var out bytes.Buffer
	broken := domain.ManagedChannel{ChannelID: 4, Name: "broken"}
	b := &fakeBackend{
		lists:  [][]domain.ManagedChannel{{modern, broken, legacy}},
		genErr: map[string]error{"c3": &domain.BackendStatusError{Status: 404}},
	}
	report, err := NewService(b, &out).GenerateMissingLinks(context.Background())
	assert.ErrorIs(t, err, ErrLinksMissing)
	assert.Equal(t, 2, report.Attempted)
	assert.Zero(t, report.Succeeded)
	assert.Len(t, report.Failed, 2)
	assert.Equal(t, []string{"g/c3"}, b.generated, "канал без идентификаторов не отправляется на бэкенд")
}

func TestGenerateMissingLinksNothingToDo(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{lists: [][]domain.ManagedChannel{{withLink}}}
	report, err := NewService(b, &out).GenerateMissingLinks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Equal(t, 1, b.listCalls)
}

func TestValidateProbe(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{outcome: domain.ValidationOutcome{Approve: false, Reason: "expired"}}
	params := domain.ValidateJoinParams{InviteLink: "https://t.me/+x", UserID: 5, ChannelID: -100}
	outcome, err := NewService(b, &out).ValidateProbe(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, outcome.Approve)
	assert.Contains(t, out.String(), "reason: expired")
	require.Len(t, b.validate, 1)
	assert.Equal(t, params, b.validate[0])
}
