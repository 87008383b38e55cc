package xnet

import (
	"context"
	"net"
	"sync"

	"imulog/pkg/xlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type UDPListenArgs struct {
	Addr   string
	RcvBuf int // SO_RCVBUF, 0 keeps the OS default
}

// UDPSocket is a bound receive socket owned by a single reader. Close may be
// called from any goroutine and unblocks a pending ReadFromUDP.
type UDPSocket struct {
	conn *net.UDPConn

	closeOnce sync.Once
	closeErr  error
}

func ListenUDP(ctx context.Context, arg UDPListenArgs) (*UDPSocket, error) {
	udpAddr, err := net.ResolveUDPAddr(udpNetwork, arg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", arg.Addr)
	}
	conn, err := net.ListenUDP(udpNetwork, udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", arg.Addr)
	}
	if arg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(arg.RcvBuf); err != nil {
			xlog.Get(ctx).Warn("Set UDP read buffer failed.", zap.Int("bytes", arg.RcvBuf), zap.Error(err))
		}
	}
	return &UDPSocket{conn: conn}, nil
}

// ReadFromUDP fills b with one datagram. Datagrams longer than b are
// truncated by the kernel.
func (sock *UDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	return sock.conn.ReadFromUDP(b)
}

func (sock *UDPSocket) LocalAddr() net.Addr {
	return sock.conn.LocalAddr()
}

func (sock *UDPSocket) Close() error {
	sock.closeOnce.Do(func() {
		sock.closeErr = sock.conn.Close()
	})
	return sock.closeErr
}

// IsClosed reports whether err comes from reading a closed socket.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
