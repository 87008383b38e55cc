package xnet

import (
	"context"
	"net"
	"sync"
	"time"

	"imulog/pkg/xcommon"
	"imulog/pkg/xlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type UDPSenderArgs struct {
	Addr string
}

// UDPSender pushes datagrams to one remote address from a dedicated write
// loop. SendMsg never blocks.
type UDPSender struct {
	conn    *net.UDPConn
	writeCh chan []byte

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        xcommon.WaitGroup
}

func NewUDPSender(ctx context.Context, arg UDPSenderArgs) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr(udpNetwork, arg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", arg.Addr)
	}
	conn, err := net.DialUDP(udpNetwork, nil, udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", arg.Addr)
	}
	sender := &UDPSender{
		conn:    conn,
		writeCh: make(chan []byte, writeChanLimit*10),
		closeCh: make(chan struct{}),
	}
	sender.wg.Add(1)
	go sender.writeLoop(ctx)
	return sender, nil
}

func (sender *UDPSender) writeLoop(ctx context.Context) {
	var writeErr error
	defer func() {
		if writeErr != nil {
			xlog.Get(ctx).Warn("Write loop exit with error", zap.Any("err", writeErr))
		}
		_ = sender.conn.Close()
	}()

	defer sender.wg.Done(ctx)

	closed := false

loop:
	for {
		var msg []byte
		if !closed {
			select {
			case msg = <-sender.writeCh:
			case <-sender.closeCh:
				closed = true
				continue loop
			}
		} else {
			// closed状态,非阻塞获取数据,将待发送数据全部发送
			select {
			case msg = <-sender.writeCh:
			default:
			}
		}
		if msg == nil {
			break
		}

		if err := sender.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			writeErr = err
			break
		}
		if _, err := sender.conn.Write(msg); err != nil {
			// 无连接传输: 对端未监听时的ICMP错误不影响后续发送
			xlog.Get(ctx).Debug("UDP write failed.", zap.Error(err))
		}
	}
}

func (sender *UDPSender) SendMsg(ctx context.Context, msg []byte) error {
	if len(msg) == 0 {
		return errors.New("empty datagram")
	}
	select {
	case <-sender.closeCh:
		return errors.New("sender already close")
	default:
	}
	select {
	case sender.writeCh <- msg:
		return nil
	default:
		return errors.New("msg overflow")
	}
}

func (sender *UDPSender) LocalAddr() net.Addr {
	return sender.conn.LocalAddr()
}

func (sender *UDPSender) RemoteAddr() net.Addr {
	return sender.conn.RemoteAddr()
}

// Close flushes queued datagrams and releases the socket.
func (sender *UDPSender) Close(ctx context.Context) {
	sender.closeOnce.Do(func() {
		close(sender.closeCh)
	})
	sender.wg.Wait()
}
