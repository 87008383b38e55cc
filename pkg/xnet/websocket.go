package xnet

import (
	"context"
	"net"
	"sync"
	"time"

	"imulog/pkg/xcommon"
	"imulog/pkg/xlog"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Websocket is one stream consumer. Inbound frames are discarded; the read
// loop only exists to notice the peer going away.
type Websocket struct {
	conn    *websocket.Conn
	writeCh chan []byte // 写channel

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        xcommon.WaitGroup
}

func newWebsocket(ctx context.Context, conn *websocket.Conn) *Websocket {
	sock := &Websocket{
		conn:    conn,
		writeCh: make(chan []byte, writeChanLimit),
		closeCh: make(chan struct{}),
	}
	sock.conn.SetReadLimit(maxMessageSize)

	sock.wg.Add(2)
	go sock.readLoop(ctx)
	go sock.writeLoop(ctx)
	return sock
}

func (sock *Websocket) readLoop(ctx context.Context) {
	var readErr error
	defer func() {
		if readErr != nil {
			xlog.Get(ctx).Debug("Stream read loop exit with error.", zap.Any("err", readErr))
		}
		sock.forceClose()
	}()

	defer sock.wg.Done(ctx)

	for {
		if _, _, err := sock.conn.ReadMessage(); err != nil {
			if e, ok := err.(*websocket.CloseError); (!ok || e.Code != websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				readErr = err
			}
			return
		}
	}
}

func (sock *Websocket) writeLoop(ctx context.Context) {
	var writeErr error
	defer func() {
		if writeErr != nil {
			xlog.Get(ctx).Warn("Stream write loop exit with error.", zap.Any("err", writeErr))
		}

		if err := sock.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second)); err != nil && err != websocket.ErrCloseSent {
			xlog.Get(ctx).Debug("Write close message failed.", zap.Any("err", err))
		}

		_ = sock.conn.Close()
	}()

	defer sock.wg.Done(ctx)

	for {
		var msg []byte
		select {
		case msg = <-sock.writeCh:
		case <-sock.closeCh:
			return
		}

		if err := sock.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			writeErr = err
			return
		}
		if err := sock.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			writeErr = err
			return
		}
	}
}

func (sock *Websocket) Close(ctx context.Context) {
	sock.forceClose()
	sock.wg.Wait()
}

func (sock *Websocket) forceClose() {
	sock.closeOnce.Do(func() {
		close(sock.closeCh)
	})
}

func (sock *Websocket) waitUntilClose() {
	sock.wg.Wait()
}

func (sock *Websocket) SendMsg(ctx context.Context, msg []byte) error {
	select {
	case sock.writeCh <- msg:
		return nil
	case <-sock.closeCh:
		return errors.New("sock already close")
	default:
		return errors.New("msg overflow")
	}
}

func (sock *Websocket) RemoteAddr() net.Addr {
	return sock.conn.RemoteAddr()
}
