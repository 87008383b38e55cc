package xnet_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"imulog/pkg/xnet"

	"github.com/stretchr/testify/require"
)

func TestUDPSenderToSocket(t *testing.T) {
	ctx := context.Background()

	sock, err := xnet.ListenUDP(ctx, xnet.UDPListenArgs{Addr: "127.0.0.1:0", RcvBuf: 1 << 16})
	require.NoError(t, err)
	defer sock.Close()

	sender, err := xnet.NewUDPSender(ctx, xnet.UDPSenderArgs{Addr: sock.LocalAddr().String()})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, sender.SendMsg(ctx, []byte(fmt.Sprintf("datagram %d", i))))
	}

	buf := make([]byte, 64)
	for i := 0; i < 10; i++ {
		n, addr, err := sock.ReadFromUDP(buf)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("datagram %d", i), string(buf[:n]))
		require.Equal(t, sender.LocalAddr().(*net.UDPAddr).Port, addr.Port)
	}

	sender.Close(ctx)
	require.Error(t, sender.SendMsg(ctx, []byte("late")))
}

func TestUDPSenderRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	sender, err := xnet.NewUDPSender(ctx, xnet.UDPSenderArgs{Addr: "127.0.0.1:9"})
	require.NoError(t, err)
	defer sender.Close(ctx)
	require.Error(t, sender.SendMsg(ctx, nil))
}

func TestUDPSocketCloseUnblocksRead(t *testing.T) {
	ctx := context.Background()
	sock, err := xnet.ListenUDP(ctx, xnet.UDPListenArgs{Addr: "127.0.0.1:0"})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := sock.ReadFromUDP(make([]byte, 8))
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())

	select {
	case err := <-errCh:
		require.True(t, xnet.IsClosed(err))
	case <-time.After(time.Second):
		t.Fatal("read was not unblocked by close")
	}
}

func TestListenUDPPortInUse(t *testing.T) {
	ctx := context.Background()
	first, err := xnet.ListenUDP(ctx, xnet.UDPListenArgs{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer first.Close()

	_, err = xnet.ListenUDP(ctx, xnet.UDPListenArgs{Addr: first.LocalAddr().String()})
	require.Error(t, err)

	_, err = xnet.ListenUDP(ctx, xnet.UDPListenArgs{Addr: "not-an-address:xx"})
	require.Error(t, err)
}
