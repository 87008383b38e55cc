package xactor

import (
	"context"
	"reflect"
	"time"

	"imulog/pkg/xlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	SyncHandler  func(ctx context.Context, req interface{}) (interface{}, error) // 同步handler
	AsyncHandler func(ctx context.Context, req interface{})                      // 异步handler
	TickHandler  func(ctx context.Context)                                       // 定时器handler
)

type SyncHandlerArgs struct {
	H SyncHandler
	T reflect.Type
}

type AsyncHandlerArgs struct {
	H AsyncHandler
	T reflect.Type
}

type ActorHandlerArgs struct {
	Syncs          []SyncHandlerArgs  // 同步handlers(同步调用阻塞等待结果)
	Asyncs         []AsyncHandlerArgs // 异步handlers(异步调用不阻塞)
	Tickers        []TickHandler      // 定时handlers(定时callback)
	TickerDuration time.Duration      // 定时间隔(默认1 minute)
}

// SyncHandlerWrap binds a typed request handler. Requests are routed by
// their pointer type, so *M1 must be unique within one actor.
func SyncHandlerWrap[M1 any, M2 any](fn func(ctx context.Context, r *M1) (*M2, error)) SyncHandlerArgs {
	t := reflect.TypeOf(new(M1))
	return SyncHandlerArgs{T: t, H: func(ctx context.Context, req interface{}) (interface{}, error) {
		r, ok := req.(*M1)
		if !ok {
			return nil, errors.Errorf("sync handler for %v got %v", t, reflect.TypeOf(req))
		}
		return fn(ctx, r)
	}}
}

func AsyncHandlerWrap[M1 any](fn func(ctx context.Context, r *M1)) AsyncHandlerArgs {
	t := reflect.TypeOf(new(M1))
	return AsyncHandlerArgs{T: t, H: func(ctx context.Context, req interface{}) {
		r, ok := req.(*M1)
		if !ok {
			xlog.Get(ctx).Warn("Async request type mismatch", zap.Stringer("want", t), zap.Any("got", reflect.TypeOf(req)))
			return
		}
		fn(ctx, r)
	}}
}

// handlerTable routes mail to handlers. It is read-only once built.
type handlerTable struct {
	syncs     map[reflect.Type]SyncHandler
	asyncs    map[reflect.Type]AsyncHandler
	ticks     []TickHandler
	tickEvery time.Duration
}

func newHandlerTable(arg ActorHandlerArgs) (*handlerTable, error) {
	h := &handlerTable{
		syncs:     make(map[reflect.Type]SyncHandler, len(arg.Syncs)),
		asyncs:    make(map[reflect.Type]AsyncHandler, len(arg.Asyncs)),
		tickEvery: arg.TickerDuration,
	}
	if h.tickEvery <= 0 {
		h.tickEvery = defaultActorTickerDuration
	}
	for _, s := range arg.Syncs {
		if s.H == nil || s.T == nil {
			return nil, errors.New("sync handler without func or type")
		}
		if _, ok := h.syncs[s.T]; ok {
			return nil, errors.Errorf("sync request[%v] is repeated", s.T)
		}
		h.syncs[s.T] = s.H
	}
	for _, a := range arg.Asyncs {
		if a.H == nil || a.T == nil {
			return nil, errors.New("async handler without func or type")
		}
		if _, ok := h.asyncs[a.T]; ok {
			return nil, errors.Errorf("async request[%v] is repeated", a.T)
		}
		// 同一请求类型只能有一种调用方式
		if _, ok := h.syncs[a.T]; ok {
			return nil, errors.Errorf("request[%v] registered as sync and async", a.T)
		}
		h.asyncs[a.T] = a.H
	}
	for _, fn := range arg.Tickers {
		if fn != nil {
			h.ticks = append(h.ticks, fn)
		}
	}
	return h, nil
}

func (h *handlerTable) sync(req interface{}) SyncHandler {
	return h.syncs[reflect.TypeOf(req)]
}

func (h *handlerTable) async(req interface{}) AsyncHandler {
	return h.asyncs[reflect.TypeOf(req)]
}

func (h *handlerTable) tick(ctx context.Context) {
	for _, fn := range h.ticks {
		fn(ctx)
	}
}
