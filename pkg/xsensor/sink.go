package xsensor

import "context"

type NopSink struct{}

func (NopSink) OnSample(context.Context, SampleEvent) {}
func (NopSink) OnRaw(context.Context, RawEvent)       {}
func (NopSink) OnError(context.Context, ErrorEvent)   {}

// MultiSink forwards every event to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnSample(ctx context.Context, e SampleEvent) {
	for _, s := range m {
		s.OnSample(ctx, e)
	}
}

func (m MultiSink) OnRaw(ctx context.Context, e RawEvent) {
	for _, s := range m {
		s.OnRaw(ctx, e)
	}
}

func (m MultiSink) OnError(ctx context.Context, e ErrorEvent) {
	for _, s := range m {
		s.OnError(ctx, e)
	}
}

// ChanSink delivers events on channels. Sends block until read or until the
// listener's context ends. Raws is nil unless requested; a nil Raws drops raw
// events.
type ChanSink struct {
	Samples chan SampleEvent
	Raws    chan RawEvent
	Errors  chan ErrorEvent
}

func NewChanSink(size int, withRaw bool) *ChanSink {
	s := &ChanSink{
		Samples: make(chan SampleEvent, size),
		Errors:  make(chan ErrorEvent, size),
	}
	if withRaw {
		s.Raws = make(chan RawEvent, size)
	}
	return s
}

func (s *ChanSink) OnSample(ctx context.Context, e SampleEvent) {
	select {
	case s.Samples <- e:
	case <-ctx.Done():
	}
}

func (s *ChanSink) OnRaw(ctx context.Context, e RawEvent) {
	if s.Raws == nil {
		return
	}
	select {
	case s.Raws <- e:
	case <-ctx.Done():
	}
}

func (s *ChanSink) OnError(ctx context.Context, e ErrorEvent) {
	select {
	case s.Errors <- e:
	case <-ctx.Done():
	}
}
