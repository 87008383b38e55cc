package xlog

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKeyType int

const loggerKey loggerKeyType = iota

// 生成一个新的子logger，绑定到新的context中
func NewContext(ctx context.Context, fields ...zapcore.Field) context.Context {
	return context.WithValue(ctx, loggerKey, newLogger(Get(ctx).Raw().With(fields...)))
}

// WithSensor binds the sensor name to every record logged through ctx.
func WithSensor(ctx context.Context, name string) context.Context {
	return NewContext(ctx, zap.String(FieldSensor, name))
}

// context获取logger
func Get(ctx context.Context) Logger {
	if ctx == nil {
		return global()
	}
	if ctxLogger, ok := ctx.Value(loggerKey).(Logger); ok {
		return ctxLogger
	}
	return global()
}
