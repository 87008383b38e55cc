package xcommon

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"imulog/pkg/xlog"

	"go.uber.org/zap"
)

// UntilSignalOrTimeout blocks until SIGINT/SIGTERM, ctx cancellation or,
// when d > 0, until d has elapsed. It reports whether the deadline fired.
func UntilSignalOrTimeout(ctx context.Context, d time.Duration) bool {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-sigCtx.Done():
		xlog.Get(ctx).Info("Recv exit signal")
		return false
	case <-timeout:
		xlog.Get(ctx).Info("Deadline reached", zap.Duration("after", d))
		return true
	}
}
