package xlatency_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"imulog/pkg/xlatency"

	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *collector) send(ctx context.Context, msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestLinkPassThrough(t *testing.T) {
	ctx := context.Background()
	c := &collector{}
	link, err := xlatency.NewLink(ctx, xlatency.LinkArgs{Name: "link-clean", Send: c.send})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, link.Forward(ctx, []byte{byte(i)}))
	}
	stats, err := link.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(50), stats.Packets)
	require.Equal(t, uint32(50), stats.Sent)
	require.Zero(t, stats.Lost)
	link.Shutdown(ctx)

	require.Equal(t, 50, c.len())
	for i, m := range c.msgs {
		require.Equal(t, []byte{byte(i)}, m)
	}
}

func TestLinkTotalLoss(t *testing.T) {
	ctx := context.Background()
	c := &collector{}
	link, err := xlatency.NewLink(ctx, xlatency.LinkArgs{Name: "link-lossy", Loss: 100, Seed: 1, Send: c.send})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, link.Forward(ctx, []byte{1}))
	}
	stats, err := link.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(20), stats.Lost)
	link.Shutdown(ctx)
	require.Zero(t, c.len())
}

func TestLinkDelay(t *testing.T) {
	ctx := context.Background()
	c := &collector{}
	link, err := xlatency.NewLink(ctx, xlatency.LinkArgs{Name: "link-slow", Latency: 30, Seed: 3, Send: c.send})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, link.Forward(ctx, []byte{1}))
	}
	require.Eventually(t, func() bool { return c.len() == 10 }, time.Second, time.Millisecond)

	stats, err := link.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(10), stats.Sent)
	require.Less(t, stats.AverageDelay(), int64(30))
	link.Shutdown(ctx)
}

func TestLinkArgs(t *testing.T) {
	ctx := context.Background()
	_, err := xlatency.NewLink(ctx, xlatency.LinkArgs{Name: "bad-loss", Loss: 101, Send: func(context.Context, []byte) {}})
	require.Error(t, err)
	_, err = xlatency.NewLink(ctx, xlatency.LinkArgs{Name: "no-send"})
	require.Error(t, err)
}
