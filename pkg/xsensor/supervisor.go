package xsensor

import (
	"context"
	"time"

	"imulog/pkg/xcommon"
	"imulog/pkg/xlog"
	"imulog/pkg/xrunctl"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type SupervisorArgs struct {
	Control      *xrunctl.Control
	Sink         Sink
	PollInterval time.Duration
	Listen       ListenFunc
}

// Handle is the supervisor's reference to one spawned listener.
type Handle struct {
	listener *Listener
	done     chan struct{}
	err      error
}

func (h *Handle) Config() Config        { return h.listener.Config() }
func (h *Handle) Listener() *Listener   { return h.listener }
func (h *Handle) Done() <-chan struct{} { return h.done }
func (h *Handle) State() ListenerState  { return h.listener.State() }

// Err is the terminal error of the listener. Only valid once Done is closed.
func (h *Handle) Err() error { return h.err }

// Supervisor spawns one listener goroutine per sensor and drives them all
// through the shared run control.
type Supervisor struct {
	ctl          *xrunctl.Control
	sink         Sink
	pollInterval time.Duration
	listen       ListenFunc
}

func NewSupervisor(arg SupervisorArgs) *Supervisor {
	s := &Supervisor{
		ctl:          arg.Control,
		sink:         arg.Sink,
		pollInterval: arg.PollInterval,
		listen:       arg.Listen,
	}
	if s.ctl == nil {
		s.ctl = xrunctl.New()
	}
	return s
}

func (s *Supervisor) Control() *xrunctl.Control { return s.ctl }

// Start spawns the listeners and returns without waiting for them to bind.
// Use WaitReady as a barrier before SignalRun when early datagrams matter.
func (s *Supervisor) Start(ctx context.Context, configs []Config) []*Handle {
	handles := make([]*Handle, 0, len(configs))
	for _, cfg := range configs {
		h := &Handle{
			listener: NewListener(ListenerArgs{
				Config:       cfg,
				Control:      s.ctl,
				Sink:         s.sink,
				PollInterval: s.pollInterval,
				Listen:       s.listen,
			}),
			done: make(chan struct{}),
		}
		handles = append(handles, h)

		go func() {
			defer close(h.done)
			defer xcommon.Recover(ctx)
			h.err = h.listener.Run(ctx)
		}()
	}
	xlog.Get(ctx).Info("Listeners spawned", zap.Int("count", len(handles)))
	return handles
}

// WaitReady blocks until every listener is bound or has failed to bind.
func (s *Supervisor) WaitReady(ctx context.Context, handles []*Handle) error {
	for _, h := range handles {
		select {
		case <-h.listener.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Supervisor) SignalRun(ctx context.Context)   { s.signal(ctx, xrunctl.Running) }
func (s *Supervisor) SignalPause(ctx context.Context) { s.signal(ctx, xrunctl.Paused) }
func (s *Supervisor) SignalStop(ctx context.Context)  { s.signal(ctx, xrunctl.Stopped) }

func (s *Supervisor) signal(ctx context.Context, st xrunctl.State) {
	prev := s.ctl.Get()
	s.ctl.Set(st)
	xlog.Get(ctx).Info("Run state changed", zap.Stringer("from", prev), zap.Stringer("to", st))
}

// Join waits for every listener and returns all of their failures combined.
// If ctx ends first its error is appended to whatever was collected.
func (s *Supervisor) Join(ctx context.Context, handles []*Handle) error {
	var err error
	for _, h := range handles {
		select {
		case <-h.done:
			err = multierr.Append(err, h.err)
		case <-ctx.Done():
			return multierr.Append(err, ctx.Err())
		}
	}
	return err
}

// Shutdown signals stop, gives listeners grace to notice it between
// datagrams, then closes the sockets of the stragglers and joins.
func (s *Supervisor) Shutdown(ctx context.Context, handles []*Handle, grace time.Duration) error {
	s.SignalStop(ctx)

	if grace > 0 {
		timer := time.NewTimer(grace)
		defer timer.Stop()
	wait:
		for _, h := range handles {
			select {
			case <-h.done:
			case <-timer.C:
				break wait
			case <-ctx.Done():
				break wait
			}
		}
	}

	for _, h := range handles {
		select {
		case <-h.done:
			continue
		default:
		}
		xlog.Get(ctx).Debug("Closing idle listener", zap.String(xlog.FieldSensor, h.Config().ID()), zap.Stringer("state", h.State()))
		if err := h.listener.Close(); err != nil {
			xlog.Get(ctx).Warn("Close listener socket failed.", zap.Error(err))
		}
	}
	return s.Join(ctx, handles)
}
