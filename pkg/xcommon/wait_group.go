package xcommon

import (
	"context"
	"runtime/debug"
	"sync"

	"imulog/pkg/xlog"

	"go.uber.org/zap"
)

// WaitGroup logs a panicking goroutine before Done, so Wait never hangs on
// it. The panic is re-raised.
// defer wg.Done(ctx), 不可在套一层func, recover不可跳过多层defer函数
type WaitGroup struct {
	sync.WaitGroup
}

func (wg *WaitGroup) Done(ctx context.Context) {
	if r := recover(); r != nil {
		logPanic(ctx, r)
		wg.WaitGroup.Done()
		panic(r)
	}
	wg.WaitGroup.Done()
}

// defer Recover(ctx), 不可在套一层func, recover不可跳过多层defer函数
func Recover(ctx context.Context) {
	if r := recover(); r != nil {
		logPanic(ctx, r)
		panic(r)
	}
}

func logPanic(ctx context.Context, r interface{}) {
	xlog.Get(ctx).Error("Goroutine panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
}
