// Package xrunctl holds the run/pause/stop flag shared between the
// controller and every sensor listener.
package xrunctl

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

type State int32

const (
	Stopped State = iota
	Running
	Paused
)

const DefaultPollInterval = 10 * time.Millisecond

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stopped", "stop":
		return Stopped, nil
	case "running", "run":
		return Running, nil
	case "paused", "pause":
		return Paused, nil
	}
	return Stopped, errors.Errorf("unknown run state %q", s)
}

// Control is safe for concurrent use. The zero value is Stopped.
// Listeners only read it; the controller is the single writer.
type Control struct {
	state atomic.Int32
}

func New() *Control {
	return &Control{}
}

func (c *Control) Set(s State) {
	c.state.Store(int32(s))
}

func (c *Control) Get() State {
	return State(c.state.Load())
}

// WaitRunning polls every interval until the state reads Running. A
// non-positive interval falls back to DefaultPollInterval.
func (c *Control) WaitRunning(ctx context.Context, interval time.Duration) error {
	if c.Get() == Running {
		return nil
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if c.Get() == Running {
			return nil
		}
	}
}
