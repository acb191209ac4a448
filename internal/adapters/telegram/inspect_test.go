package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeBotAPI(t *testing.T, token string, admins string) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+token+"/getMe", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":77,"is_bot":true,"first_name":"Gate","username":"gate_bot"}}`))
	})
	mux.HandleFunc("/bot"+token+"/getChat", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "-1001", r.PostForm.Get("chat_id"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":-1001,"type":"channel","title":"Premium"}}`))
	})
	mux.HandleFunc("/bot"+token+"/getChatAdministrators", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":` + admins + `}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/bot%s/%s"
}

func TestInspectorIdentity(t *testing.T) {
	endpoint := newFakeBotAPI(t, "good", `[]`)

	me, err := DialInspector("good", endpoint, time.Second).Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(77), me.ID)
	assert.Equal(t, "gate_bot", me.Username)
	assert.Equal(t, "Gate", me.FirstName)
}

func TestInspectorIdentityBadToken(t *testing.T) {
	endpoint := newFakeBotAPI(t, "good", `[]`)

	_, err := DialInspector("bad", endpoint, time.Second).Identity(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestInspectorChannelAccess(t *testing.T) {
	endpoint := newFakeBotAPI(t, "good", `[{"user":{"id":1,"is_bot":false,"first_name":"Owner"},"status":"creator"},{"user":{"id":77,"is_bot":true,"first_name":"Gate"},"status":"administrator"}]`)

	access, err := DialInspector("good", endpoint, time.Second).ChannelAccess(context.Background(), -1001)
	require.NoError(t, err)
	assert.Equal(t, "Premium", access.Title)
	assert.Equal(t, "channel", access.Type)
	assert.True(t, access.IsAdmin)
}

func TestInspectorChannelAccessNotAdmin(t *testing.T) {
	endpoint := newFakeBotAPI(t, "good", `[{"user":{"id":1,"is_bot":false,"first_name":"Owner"},"status":"creator"}]`)

	access, err := DialInspector("good", endpoint, time.Second).ChannelAccess(context.Background(), -1001)
	require.NoError(t, err)
	assert.False(t, access.IsAdmin)
}
