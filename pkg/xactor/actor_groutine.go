package xactor

import (
	"context"
	"reflect"
	"sync"
	"time"

	"imulog/pkg/xcommon"
	"imulog/pkg/xlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 模拟actor模式
// 特性:
//  1. 异步单协程处理
//  2. 同步无锁编码
//  3. 同步阻塞消息处理/异步消息处理
//  4. 支持ticker
type ActorGroutine struct {
	state    ActorState // 数据状态
	box      *mailBox   // 消息分发
	handlers *handlerTable

	wg        xcommon.WaitGroup
	closeOnce sync.Once
	closeCh   chan struct{}
	doneCh    chan struct{} // logicLoop退出
}

func NewActorGroutine(ctx context.Context, state ActorState) (*ActorGroutine, error) {
	handlers, err := newHandlerTable(state.InitArg())
	if err != nil {
		return nil, err
	}
	actor := &ActorGroutine{
		state:    state,
		box:      newMailBox(),
		handlers: handlers,
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	// 注册actor
	if err := registerActor(actor); err != nil {
		return nil, err
	}

	actor.wg.Add(1)
	go actor.logicLoop(ctx)
	return actor, nil
}

func (actor *ActorGroutine) Name() string {
	return actor.state.Name()
}

// 业务循环
func (actor *ActorGroutine) logicLoop(ctx context.Context) {
	defer actor.wg.Done(ctx)

	ticker := time.NewTicker(actor.handlers.tickEvery)
	defer ticker.Stop()

	defer func() {
		// 关闭前处理完剩余mail, 再关闭业务模块
		actor.drain(ctx)
		actor.state.Close(ctx)
		close(actor.doneCh)
	}()

	for {
		select {
		case m := <-actor.box.recvMail():
			actor.dispatch(ctx, m)
		case <-ticker.C:
			// 触发定时任务
			actor.handlers.tick(ctx)
		case <-actor.closeCh:
			return
		}
	}
}

func (actor *ActorGroutine) drain(ctx context.Context) {
	for {
		select {
		case m := <-actor.box.recvMail():
			actor.dispatch(ctx, m)
		default:
			return
		}
	}
}

func (actor *ActorGroutine) dispatch(ctx context.Context, m *mail) {
	switch m.t {
	case syncMail:
		handler := actor.handlers.sync(m.req)
		if handler == nil {
			m.resultCh <- &result{err: errors.Errorf("sync handler for %v is nil", reflect.TypeOf(m.req))}
			return
		}
		resp, err := handler(m.ctx, m.req)
		m.resultCh <- &result{resp: resp, err: err}
	case asyncMail:
		handler := actor.handlers.async(m.req)
		if handler == nil {
			xlog.Get(ctx).Warn("Async handler is nil", zap.Any("req", reflect.TypeOf(m.req)))
			return
		}
		handler(m.ctx, m.req)
	default:
		xlog.Get(ctx).Warn("Mail type invalid", zap.Any("type", m.t))
	}
}

// 同步请求
func (actor *ActorGroutine) syncRequest(ctx context.Context, req interface{}) (interface{}, error) {
	m := newMail(ctx, syncMail, req)
	if err := actor.box.sendMail(ctx, m, actor.closeCh); err != nil {
		return nil, err
	}
	select {
	case r := <-m.resultCh:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-actor.doneCh:
		select {
		case r := <-m.resultCh:
			return r.resp, r.err
		default:
			return nil, ErrActorClosed
		}
	}
}

// 同步请求(模板): M1 request, M2 response
func Call[M1 any, M2 any](ctx context.Context, actor *ActorGroutine, req *M1) (*M2, error) {
	result, err := actor.syncRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*M2)
	if !ok {
		return nil, errors.Errorf("result [%v] not type [%v]", reflect.TypeOf(result), reflect.TypeOf(new(M2)))
	}
	return resp, nil
}

// 异步请求
func (actor *ActorGroutine) Post(ctx context.Context, req interface{}) error {
	return actor.box.sendMail(ctx, newMail(ctx, asyncMail, req), actor.closeCh)
}

// 关闭: 处理完已投递的mail后调用ActorState.Close
func (actor *ActorGroutine) Close(ctx context.Context) {
	actor.closeOnce.Do(func() {
		close(actor.closeCh)
	})
	actor.wg.Wait()

	// 删除actor
	deregisterActor(actor)
}
