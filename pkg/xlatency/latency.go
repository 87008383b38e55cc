// Package xlatency simulates an unreliable datagram path: random loss and
// random extra delay, applied in front of a send function.
package xlatency

import (
	"context"
	"math/rand"
	"time"

	"imulog/pkg/xactor"
	"imulog/pkg/xlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const tickDuration = time.Millisecond

type SendFunc func(ctx context.Context, msg []byte)

type LinkArgs struct {
	Name    string
	Loss    uint32 // 丢失率 0~100
	Latency uint32 // 随机延迟上限ms
	Seed    int64  // 0 uses the clock
	Send    SendFunc
}

type LinkStats struct {
	Packets  uint32
	Lost     uint32
	Sent     uint32
	AllDelay int64 // ms
}

func (s LinkStats) AverageDelay() int64 {
	if s.Sent == 0 {
		return 0
	}
	return s.AllDelay / int64(s.Sent)
}

type pendingMsg struct {
	at  int64
	msg []byte
}

// Link runs inside an actor, so its fields are only touched by the actor
// goroutine.
type Link struct {
	name    string
	loss    uint32
	latency uint32
	rnd     *rand.Rand
	send    SendFunc
	pending []*pendingMsg
	stats   LinkStats

	actor *xactor.ActorGroutine
}

func NewLink(ctx context.Context, arg LinkArgs) (*Link, error) {
	if arg.Loss > 100 {
		return nil, errors.Errorf("loss %v out of range 0~100", arg.Loss)
	}
	if arg.Send == nil {
		return nil, errors.Errorf("link %v has no send func", arg.Name)
	}
	seed := arg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	l := &Link{
		name:    arg.Name,
		loss:    arg.Loss,
		latency: arg.Latency,
		rnd:     rand.New(rand.NewSource(seed)),
		send:    arg.Send,
	}
	actor, err := xactor.NewActorGroutine(ctx, l)
	if err != nil {
		return nil, err
	}
	l.actor = actor
	return l, nil
}

func (l *Link) InitArg() xactor.ActorHandlerArgs {
	return xactor.ActorHandlerArgs{
		Syncs:          []xactor.SyncHandlerArgs{xactor.SyncHandlerWrap(l.onStats)},
		Asyncs:         []xactor.AsyncHandlerArgs{xactor.AsyncHandlerWrap(l.onForward)},
		Tickers:        []xactor.TickHandler{l.tickLoop},
		TickerDuration: tickDuration,
	}
}

func (l *Link) Name() string {
	return l.name
}

// Close 在actor协程内调用: 未到期的数据立即发出
func (l *Link) Close(ctx context.Context) {
	for _, m := range l.pending {
		l.deliver(ctx, m)
	}
	l.pending = nil

	xlog.Get(ctx).Info("Link closed",
		zap.String("link", l.name),
		zap.Uint32("packets", l.stats.Packets),
		zap.Uint32("lost", l.stats.Lost),
		zap.Int64("avg_delay_ms", l.stats.AverageDelay()))
}

// Forward queues msg on the link. The caller must not reuse msg.
func (l *Link) Forward(ctx context.Context, msg []byte) error {
	return l.actor.Post(ctx, &forwardReq{Msg: msg})
}

func (l *Link) Stats(ctx context.Context) (LinkStats, error) {
	resp, err := xactor.Call[statsReq, LinkStats](ctx, l.actor, &statsReq{})
	if err != nil {
		return LinkStats{}, err
	}
	return *resp, nil
}

func (l *Link) Shutdown(ctx context.Context) {
	l.actor.Close(ctx)
}

type forwardReq struct {
	Msg []byte
}

type statsReq struct{}

func (l *Link) onStats(ctx context.Context, req *statsReq) (*LinkStats, error) {
	stats := l.stats
	return &stats, nil
}

func (l *Link) onForward(ctx context.Context, req *forwardReq) {
	l.stats.Packets++
	if l.loss > 0 && uint32(l.rnd.Int31n(100)) < l.loss {
		l.stats.Lost++
		return
	}
	var delay int64
	if l.latency > 0 {
		delay = int64(l.rnd.Int31n(int32(l.latency)))
	}
	m := &pendingMsg{at: time.Now().UnixMilli() + delay, msg: req.Msg}
	if delay == 0 {
		l.deliver(ctx, m)
		return
	}
	l.stats.AllDelay += delay
	l.pending = append(l.pending, m)
}

func (l *Link) tickLoop(ctx context.Context) {
	if len(l.pending) == 0 {
		return
	}
	now := time.Now().UnixMilli()
	remain := l.pending[:0]
	for _, m := range l.pending {
		if m.at > now {
			remain = append(remain, m)
			continue
		}
		l.deliver(ctx, m)
	}
	l.pending = remain
}

func (l *Link) deliver(ctx context.Context, m *pendingMsg) {
	l.stats.Sent++
	l.send(ctx, m.msg)
}
