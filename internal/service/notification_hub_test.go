package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHub_LocalFanOut(t *testing.T) {
	hub := NewNotificationHub(nil, func(r *http.Request) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.URL.Query().Get("uid"))
		hub.ServeWs(w, r, uint(id))
	}))
	defer srv.Close()

	dial := func(uid int) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.Itoa(uid)
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	target := dial(7)
	defer target.Close()
	bystander := dial(8)
	defer bystander.Close()

	require.Eventually(t, func() bool { return hub.IsUserOnline(7) && hub.IsUserOnline(8) }, 2*time.Second, 10*time.Millisecond)

	// 无法序列化的消息被丢弃，不影响后续推送
	hub.PushToUsers([]uint{7}, WSMessage{Type: EventInteractionPending, Data: make(chan int)})
	hub.PushToUsers([]uint{7}, WSMessage{Type: EventInteractionCompleted, Data: map[string]int{"id": 42}})

	target.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := target.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventInteractionCompleted, msg.Type)
	assert.Equal(t, 42, msg.Data["id"])

	bystander.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = bystander.ReadMessage()
	assert.Error(t, err)

	target.Close()
	require.Eventually(t, func() bool { return !hub.IsUserOnline(7) }, 2*time.Second, 10*time.Millisecond)
}

func TestNotificationHub_StopIsIdempotent(t *testing.T) {
	hub := NewNotificationHub(nil, nil)
	hub.Stop()
	hub.Stop()
	hub.PushToUsers([]uint{1}, WSMessage{Type: EventInteractionPending})
}
