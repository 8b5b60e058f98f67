package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/drive-gallery/gallery/internal/web/gallery/dto"
	"github.com/drive-gallery/gallery/internal/web/gallery/notify"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer srv.Close()

	first := dialHub(t, srv)
	second := dialHub(t, srv)

	// registration races the broadcast, give the hub a beat
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast(dto.ChangeEvent{Type: "files-changed", FolderID: "f1", FileID: "x"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev dto.ChangeEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		require.Equal(t, "files-changed", ev.Type)
		require.Equal(t, "f1", ev.FolderID)
		require.Equal(t, "x", ev.FileID)
	}
}

func TestHubDropsDepartedSubscriber(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer srv.Close()

	gone := dialHub(t, srv)
	stays := dialHub(t, srv)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, gone.Close())
	time.Sleep(100 * time.Millisecond)

	// the survivor still receives events after the other peer left
	hub.Broadcast(dto.ChangeEvent{Type: "files-changed", FolderID: "f2"})

	require.NoError(t, stays.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := stays.ReadMessage()
	require.NoError(t, err)

	var ev dto.ChangeEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	require.Equal(t, "f2", ev.FolderID)
}
