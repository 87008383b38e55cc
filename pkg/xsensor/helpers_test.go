package xsensor_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"imulog/pkg/xfixed"
	"imulog/pkg/xnet"
	"imulog/pkg/xsensor"

	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func loopbackConfig(name string) xsensor.Config {
	cfg := xsensor.Config{Name: name, Address: "127.0.0.1", Port: 0}
	cfg.ApplyDefaults()
	return cfg
}

func encode(t *testing.T, v xfixed.Vector) []byte {
	b, err := xfixed.EncodePacket(v)
	require.NoError(t, err)
	return b
}

func newSender(t *testing.T, addr net.Addr) *xnet.UDPSender {
	require.NotNil(t, addr)
	ctx := context.Background()
	sender, err := xnet.NewUDPSender(ctx, xnet.UDPSenderArgs{Addr: addr.String()})
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close(ctx) })
	return sender
}

func send(t *testing.T, sender *xnet.UDPSender, b []byte) {
	require.NoError(t, sender.SendMsg(context.Background(), b))
}

func waitReady(t *testing.T, l *xsensor.Listener) {
	select {
	case <-l.Ready():
	case <-time.After(waitTimeout):
		t.Fatal("listener never became ready")
	}
}

func waitState(t *testing.T, l *xsensor.Listener, want xsensor.ListenerState) {
	require.Eventually(t, func() bool { return l.State() == want }, waitTimeout, time.Millisecond, "want %v, have %v", want, l.State())
}

func recvSample(t *testing.T, sink *xsensor.ChanSink) xsensor.SampleEvent {
	select {
	case e := <-sink.Samples:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("no sample received")
	}
	return xsensor.SampleEvent{}
}

func recvError(t *testing.T, sink *xsensor.ChanSink) xsensor.ErrorEvent {
	select {
	case e := <-sink.Errors:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("no error event received")
	}
	return xsensor.ErrorEvent{}
}

func requireNoSample(t *testing.T, sink *xsensor.ChanSink, d time.Duration) {
	select {
	case e := <-sink.Samples:
		t.Fatalf("unexpected sample %+v", e)
	case <-time.After(d):
	}
}

// runListener starts l.Run and returns a channel with its result.
func runListener(ctx context.Context, l *xsensor.Listener) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	return errCh
}

type scriptedRead struct {
	data []byte
	err  error
}

// scriptedSocket replays reads, then blocks until closed.
type scriptedSocket struct {
	mu      sync.Mutex
	reads   []scriptedRead
	closeCh chan struct{}
	once    sync.Once
}

func newScriptedSocket(reads ...scriptedRead) *scriptedSocket {
	return &scriptedSocket{reads: reads, closeCh: make(chan struct{})}
}

func (s *scriptedSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	s.mu.Lock()
	if len(s.reads) > 0 {
		r := s.reads[0]
		s.reads = s.reads[1:]
		s.mu.Unlock()
		if r.err != nil {
			return 0, nil, r.err
		}
		return copy(b, r.data), &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 4000}, nil
	}
	s.mu.Unlock()
	<-s.closeCh
	return 0, nil, net.ErrClosed
}

func (s *scriptedSocket) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9751}
}

func (s *scriptedSocket) Close() error {
	s.once.Do(func() { close(s.closeCh) })
	return nil
}
