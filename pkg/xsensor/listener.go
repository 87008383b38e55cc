package xsensor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"imulog/pkg/xfixed"
	"imulog/pkg/xlog"
	"imulog/pkg/xnet"
	"imulog/pkg/xrunctl"

	"go.uber.org/zap"
)

type ListenerState int32

const (
	StateCreated ListenerState = iota
	StateBound
	StateAwaitingStart
	StateActive
	StateClosed
	StateFailed
)

func (s ListenerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBound:
		return "bound"
	case StateAwaitingStart:
		return "awaiting-start"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("listener-state(%d)", int32(s))
	}
}

// Terminal reports whether the listener has finished.
func (s ListenerState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Socket is the receive side of a bound datagram socket.
type Socket interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	LocalAddr() net.Addr
	Close() error
}

// ListenFunc opens and binds the socket for one sensor.
type ListenFunc func(ctx context.Context, cfg Config) (Socket, error)

func ListenUDP(ctx context.Context, cfg Config) (Socket, error) {
	sock, err := xnet.ListenUDP(ctx, xnet.UDPListenArgs{Addr: cfg.Addr(), RcvBuf: cfg.RcvBuf})
	if err != nil {
		return nil, err
	}
	return sock, nil
}

type ListenerArgs struct {
	Config       Config
	Control      *xrunctl.Control
	Sink         Sink
	PollInterval time.Duration // start signal poll, 0 means xrunctl.DefaultPollInterval
	Listen       ListenFunc
}

// Listener owns one socket and runs one receive loop, gated by the shared
// run control.
type Listener struct {
	cfg          Config
	ctl          *xrunctl.Control
	sink         Sink
	pollInterval time.Duration
	listen       ListenFunc

	state atomic.Int32
	seq   uint64 // receive loop only

	mu   sync.Mutex
	sock Socket

	readyOnce sync.Once
	ready     chan struct{}
	closeOnce sync.Once
	closeCh   chan struct{}
}

func NewListener(arg ListenerArgs) *Listener {
	l := &Listener{
		cfg:          arg.Config,
		ctl:          arg.Control,
		sink:         arg.Sink,
		pollInterval: arg.PollInterval,
		listen:       arg.Listen,
		ready:        make(chan struct{}),
		closeCh:      make(chan struct{}),
	}
	if l.ctl == nil {
		l.ctl = xrunctl.New()
	}
	if l.sink == nil {
		l.sink = NopSink{}
	}
	if l.listen == nil {
		l.listen = ListenUDP
	}
	return l
}

func (l *Listener) Config() Config { return l.cfg }

func (l *Listener) State() ListenerState {
	return ListenerState(l.state.Load())
}

// Ready is closed once the socket is bound or binding has failed.
func (l *Listener) Ready() <-chan struct{} { return l.ready }

// LocalAddr is the bound address, nil before Bound.
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sock == nil {
		return nil
	}
	return l.sock.LocalAddr()
}

// Close releases the socket from outside the receive loop. A pending read
// returns and the listener ends without waiting for another datagram.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.sock != nil {
			err = l.sock.Close()
		}
	})
	return err
}

// Run drives the listener to a terminal state. Only an invalid config or a
// bind failure is returned; receive and decode problems go to the sink. Cancelling ctx
// closes the socket.
func (l *Listener) Run(ctx context.Context) error {
	ctx = xlog.WithSensor(ctx, l.cfg.ID())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.closeCh:
			cancel()
		case <-ctx.Done():
			_ = l.Close()
		}
	}()
	defer l.markReady()

	if err := l.cfg.Validate(); err != nil {
		cfgErr := &ConfigError{Sensor: l.cfg.ID(), Err: err}
		l.setState(StateFailed)
		l.markReady()
		xlog.Get(ctx).Error("Invalid sensor config.", zap.Error(err))
		l.sink.OnError(ctx, ErrorEvent{Sensor: l.cfg.ID(), Err: cfgErr, At: time.Now()})
		return cfgErr
	}

	sock, err := l.listen(ctx, l.cfg)
	if err != nil {
		bindErr := &BindError{Sensor: l.cfg.ID(), Addr: l.cfg.Addr(), Err: err}
		l.setState(StateFailed)
		l.markReady()
		xlog.Get(ctx).Error("Binding socket failed.", zap.String("addr", l.cfg.Addr()), zap.Error(err))
		l.sink.OnError(ctx, ErrorEvent{Sensor: l.cfg.ID(), Err: bindErr, At: time.Now()})
		return bindErr
	}
	if !l.attach(sock) {
		_ = sock.Close()
		l.setState(StateClosed)
		return nil
	}
	l.setState(StateBound)
	l.markReady()
	xlog.Get(ctx).Info("Socket bound", zap.Stringer("addr", sock.LocalAddr()), zap.Int("recv_size", l.cfg.RecvSize()))

	l.setState(StateAwaitingStart)
	xlog.Get(ctx).Debug("Waiting for signal to start experiment")
	if err := l.ctl.WaitRunning(ctx, l.pollInterval); err == nil {
		l.setState(StateActive)
		xlog.Get(ctx).Info("Listener active")
		l.receiveLoop(ctx, sock)
	}

	_ = l.Close()
	l.setState(StateClosed)
	xlog.Get(ctx).Info("Listener closed", zap.Uint64("datagrams", l.seq))
	return nil
}

func (l *Listener) attach(sock Socket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.closeCh:
		return false
	default:
	}
	l.sock = sock
	return true
}

func (l *Listener) receiveLoop(ctx context.Context, sock Socket) {
	buf := make([]byte, l.cfg.RecvSize())
	for {
		n, addr, err := sock.ReadFromUDP(buf)
		now := time.Now()
		if err != nil {
			if xnet.IsClosed(err) || ctx.Err() != nil {
				return
			}
			xlog.Get(ctx).Warn("Recv failed.", zap.Error(err))
			l.sink.OnError(ctx, ErrorEvent{Sensor: l.cfg.ID(), Err: &ReceiveError{Sensor: l.cfg.ID(), Err: err}, At: now})
		} else {
			l.handleDatagram(ctx, buf[:n], addr, now)
		}

		// 仅在两个数据包之间检查停止信号
		if l.ctl.Get() == xrunctl.Stopped {
			xlog.Get(ctx).Debug("Stop observed")
			return
		}
	}
}

func (l *Listener) handleDatagram(ctx context.Context, data []byte, addr *net.UDPAddr, now time.Time) {
	l.seq++
	paused := l.ctl.Get() == xrunctl.Paused

	raw := make([]byte, len(data))
	copy(raw, data)
	l.sink.OnRaw(ctx, RawEvent{Sensor: l.cfg.ID(), Seq: l.seq, Data: raw, Source: addr, ReceivedAt: now, Paused: paused})
	if paused {
		return
	}

	values, err := xfixed.DecodePacket(data)
	if err != nil {
		xlog.Get(ctx).Warn("Malformed packet skipped.", zap.Int("len", len(data)), zap.Stringer("from", addr))
		l.sink.OnError(ctx, ErrorEvent{Sensor: l.cfg.ID(), Err: &ShortPacketError{Sensor: l.cfg.ID(), Len: len(data), Err: err}, At: now})
		return
	}
	l.sink.OnSample(ctx, SampleEvent{Sensor: l.cfg.ID(), Seq: l.seq, Values: values, Source: addr, ReceivedAt: now})
}

func (l *Listener) setState(s ListenerState) {
	l.state.Store(int32(s))
}

func (l *Listener) markReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}
