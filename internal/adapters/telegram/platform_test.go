package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-channel-gate/internal/domain"
)

type fakeRequester struct {
	mu       sync.Mutex
	requests []tgbotapi.Chattable
	sent     []tgbotapi.MessageConfig
	err      error
	block    chan struct{}
}

func (f *fakeRequester) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if f.err != nil {
		return nil, f.err
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeRequester) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestApproveJoinRequestBuildsConfig(t *testing.T) {
	api := &fakeRequester{}
	p := NewPlatform(api)

	require.NoError(t, p.ApproveJoinRequest(context.Background(), -100, 42))
	require.Len(t, api.requests, 1)
	cfg, ok := api.requests[0].(tgbotapi.ApproveChatJoinRequestConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100), cfg.ChatID)
	assert.Equal(t, int64(42), cfg.UserID)
}

func TestDeclineAndRevokeBuildConfigs(t *testing.T) {
	api := &fakeRequester{}
	p := NewPlatform(api)

	require.NoError(t, p.DeclineJoinRequest(context.Background(), -100, 42))
	require.NoError(t, p.RevokeInviteLink(context.Background(), -100, "https://t.me/+abc"))
	require.Len(t, api.requests, 2)

	decline, ok := api.requests[0].(tgbotapi.DeclineChatJoinRequest)
	require.True(t, ok)
	assert.Equal(t, int64(42), decline.UserID)

	revoke, ok := api.requests[1].(tgbotapi.RevokeChatInviteLinkConfig)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/+abc", revoke.InviteLink)
	assert.Equal(t, int64(-100), revoke.ChatID)
}

func TestRequestGoneIsClassified(t *testing.T) {
	cases := []struct {
		name string
		err  error
		gone bool
	}{
		{name: "hide requester", err: &tgbotapi.Error{Code: 400, Message: "Bad Request: HIDE_REQUESTER_MISSING"}, gone: true},
		{name: "already participant", err: &tgbotapi.Error{Code: 400, Message: "Bad Request: USER_ALREADY_PARTICIPANT"}, gone: true},
		{name: "lower case", err: &tgbotapi.Error{Code: 400, Message: "bad request: hide_requester_missing"}, gone: true},
		{name: "other bad request", err: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, gone: false},
		{name: "forbidden", err: &tgbotapi.Error{Code: 403, Message: "HIDE_REQUESTER_MISSING"}, gone: false},
		{name: "transport", err: errors.New("connection reset"), gone: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPlatform(&fakeRequester{err: tc.err})
			err := p.ApproveJoinRequest(context.Background(), 1, 2)
			require.Error(t, err)
			assert.Equal(t, tc.gone, errors.Is(err, domain.ErrJoinRequestGone))
		})
	}
}

func TestRequestRespectsContext(t *testing.T) {
	api := &fakeRequester{block: make(chan struct{})}
	defer close(api.block)
	p := NewPlatform(api)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.DeclineJoinRequest(ctx, 1, 2)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSendMessageSplitsLongText(t *testing.T) {
	api := &fakeRequester{}
	p := NewPlatform(api)

	text := strings.Repeat("x", messageLimit) + "\n" + "tail"
	require.NoError(t, p.SendMessage(context.Background(), 7, text))
	require.Len(t, api.sent, 2)
	assert.Equal(t, int64(7), api.sent[0].ChatID)
	assert.Equal(t, "tail", api.sent[1].Text)
}
