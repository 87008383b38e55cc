package xsensor

import (
	"context"
	"net"
	"time"

	"imulog/pkg/xfixed"
)

type SampleEvent struct {
	Sensor     string
	Seq        uint64 // per listener, counts received datagrams
	Values     xfixed.Vector
	Source     *net.UDPAddr
	ReceivedAt time.Time
}

type RawEvent struct {
	Sensor     string
	Seq        uint64
	Data       []byte // owned by the event
	Source     *net.UDPAddr
	ReceivedAt time.Time
	Paused     bool // received while paused, no sample follows
}

type ErrorEvent struct {
	Sensor string
	Err    error
	At     time.Time
}

// Sink consumes listener output. Listeners call it concurrently, each from
// its own goroutine; a blocking sink stalls only the calling listener.
type Sink interface {
	OnSample(ctx context.Context, e SampleEvent)
	OnRaw(ctx context.Context, e RawEvent)
	OnError(ctx context.Context, e ErrorEvent)
}
