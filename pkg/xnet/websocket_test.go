package xnet_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"imulog/pkg/xnet"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestStreamServerBroadcast(t *testing.T) {
	ctx := context.Background()
	svr, err := xnet.NewStreamServer(ctx, xnet.StreamSvrArgs{Addr: "127.0.0.1:0", Path: "/samples"})
	require.NoError(t, err)
	defer svr.Close(ctx)

	url := fmt.Sprintf("ws://%s/samples", svr.Addr().String())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return svr.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, svr.Broadcast(ctx, []byte(`{"sensor":"imu0"}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	require.JSONEq(t, `{"sensor":"imu0"}`, string(msg))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return svr.Clients() == 0 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, svr.Broadcast(ctx, []byte("{}")))
}

func TestStreamServerExtraHandlers(t *testing.T) {
	ctx := context.Background()
	svr, err := xnet.NewStreamServer(ctx, xnet.StreamSvrArgs{
		Addr: "127.0.0.1:0",
		Path: "/samples",
		Handlers: map[string]http.Handler{
			"/healthz": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}),
		},
	})
	require.NoError(t, err)
	defer svr.Close(ctx)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", svr.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestStreamServerListenError(t *testing.T) {
	ctx := context.Background()
	svr, err := xnet.NewStreamServer(ctx, xnet.StreamSvrArgs{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer svr.Close(ctx)

	_, err = xnet.NewStreamServer(ctx, xnet.StreamSvrArgs{Addr: svr.Addr().String()})
	require.Error(t, err)
}
