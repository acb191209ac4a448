package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-channel-gate/internal/domain"
)

func e2eParams() E2EParams {
	return E2EParams{UserID: 123, ChannelID: -1001, InviteLink: "https://t.me/+e2e"}
}

func TestE2EPassesAllSteps(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{
		health:   domain.BackendHealth{Status: "ok", DBStatus: "connected"},
		testLink: "https://t.me/+test",
		outcome:  domain.ValidationOutcome{Reason: "Invalid invite link"},
		lists:    [][]domain.ManagedChannel{{withLink}},
	}
	bot := &fakeBot{me: domain.BotIdentity{ID: 77, Username: "gate_bot"}}
	svc := NewService(b, &out, WithBot(bot))
	joinedAt := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return joinedAt }

	report, err := svc.E2E(context.Background(), e2eParams())
	require.NoError(t, err)
	assert.Len(t, report.Steps, 7)
	assert.Equal(t, []string{"health", "test_link", "validate", "check_expiry", "joined"}, b.calls)
	assert.Equal(t, 1, b.listCalls)
	require.Len(t, b.joined, 1)
	assert.Equal(t, domain.JoinNotification{InviteLink: "https://t.me/+e2e", UserID: 123, ChannelID: -1001, JoinedAt: joinedAt}, b.joined[0])
	assert.Contains(t, out.String(), "@gate_bot")
	assert.Contains(t, out.String(), "approve: false")
}

func TestE2EStopsWithoutBot(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{}

	report, err := NewService(b, &out).E2E(context.Background(), e2eParams())
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Len(t, report.Steps, 1)
	assert.Empty(t, b.calls)
}

func TestE2EStopsOnBadToken(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{}
	bot := &fakeBot{meErr: errors.New("Unauthorized")}

	_, err := NewService(b, &out, WithBot(bot)).E2E(context.Background(), e2eParams())
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Empty(t, b.calls)
	assert.Contains(t, out.String(), "Unauthorized")
}

func TestE2EStopsWhenBackendDown(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{healthErr: errors.New("connection refused")}
	bot := &fakeBot{me: domain.BotIdentity{ID: 77}}

	report, err := NewService(b, &out, WithBot(bot)).E2E(context.Background(), e2eParams())
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Len(t, report.Steps, 2)
	assert.Equal(t, []string{"health"}, b.calls)
}

func TestE2EContinuesAfterStepFailure(t *testing.T) {
	var out bytes.Buffer
	b := &fakeBackend{
		health:      domain.BackendHealth{Status: "ok"},
		testLinkErr: &domain.BackendStatusError{Status: 500},
		lists:       [][]domain.ManagedChannel{{}},
	}
	bot := &fakeBot{me: domain.BotIdentity{ID: 77}}

	report, err := NewService(b, &out, WithBot(bot)).E2E(context.Background(), e2eParams())
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Len(t, report.Steps, 7)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "Генерация тестовой ссылки", report.Failed()[0].Name)
}
