package xnet

import (
	"context"
	"net"
	"net/http"
	"sync"

	"imulog/pkg/xcommon"
	"imulog/pkg/xlog"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type StreamSvrArgs struct {
	Addr     string
	Path     string
	Handlers map[string]http.Handler // extra routes served next to the stream
}

// StreamServer fans text frames out to every connected websocket client.
// Slow clients lose frames instead of stalling the broadcaster.
type StreamServer struct {
	upgrader *websocket.Upgrader
	httpSrv  *http.Server
	ln       net.Listener
	wg       xcommon.WaitGroup

	mu      sync.Mutex
	sockets map[*Websocket]bool // 所有的active连接
}

func NewStreamServer(ctx context.Context, arg StreamSvrArgs) (*StreamServer, error) {
	if arg.Path == "" {
		arg.Path = "/"
	}
	ln, err := net.Listen(tcpNetwork, arg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", arg.Addr)
	}

	svr := &StreamServer{
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ln:      ln,
		sockets: make(map[*Websocket]bool),
	}
	mux := http.NewServeMux()
	mux.Handle(arg.Path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conn, err := svr.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// upgrader will respond
			xlog.Get(ctx).Warn("Upgrade connection failed", zap.Any("err", err))
			return
		}

		sock := newWebsocket(ctx, conn)
		svr.addSocket(sock)
		xlog.Get(ctx).Debug("Stream client connect", zap.Stringer("addr", sock.RemoteAddr()))

		sock.waitUntilClose()

		svr.delSocket(sock)
		xlog.Get(ctx).Debug("Stream client disconnect", zap.Stringer("addr", sock.RemoteAddr()))
	}))
	for pattern, h := range arg.Handlers {
		mux.Handle(pattern, h)
	}

	svr.httpSrv = &http.Server{
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			// 把传入的context作为每个request的基础context
			return ctx
		},
	}

	svr.wg.Add(1)
	go svr.serve(ctx)
	return svr, nil
}

func (svr *StreamServer) serve(ctx context.Context) {
	defer svr.wg.Done(ctx)
	if err := svr.httpSrv.Serve(svr.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		xlog.Get(ctx).Error("Stream server exit with error", zap.Error(err))
	}
}

func (svr *StreamServer) addSocket(sock *Websocket) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	svr.sockets[sock] = true
}

func (svr *StreamServer) delSocket(sock *Websocket) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	delete(svr.sockets, sock)
}

func (svr *StreamServer) Addr() net.Addr {
	return svr.ln.Addr()
}

func (svr *StreamServer) Clients() int {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	return len(svr.sockets)
}

// Broadcast queues msg for every client and returns how many accepted it.
func (svr *StreamServer) Broadcast(ctx context.Context, msg []byte) int {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	sent := 0
	for sock := range svr.sockets {
		if err := sock.SendMsg(ctx, msg); err != nil {
			xlog.Get(ctx).Debug("Stream frame dropped", zap.Stringer("addr", sock.RemoteAddr()), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func (svr *StreamServer) Close(ctx context.Context) {
	svr.mu.Lock()
	socks := make([]*Websocket, 0, len(svr.sockets))
	for sock := range svr.sockets {
		socks = append(socks, sock)
	}
	svr.mu.Unlock()

	for _, sock := range socks {
		sock.Close(ctx)
	}
	_ = svr.httpSrv.Close()
	svr.wg.Wait()
}
