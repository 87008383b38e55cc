package xlog

import (
	"strings"
	"sync"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldTimestamp = "@timestamp"
	FieldSensor    = "sensor"
	FieldRun       = "run"
)

// Options 全局logger配置
type Options struct {
	Level string // debug|info|warn|error
	JSON  bool   // prod: json, dev: 带颜色的终端格式
	Quiet bool   // 关闭标准输出(测试使用)
}

var (
	mu      sync.RWMutex
	gLogger Logger
	gLevel  = zap.NewAtomicLevelAt(zapcore.DebugLevel)
)

func init() {
	gLogger = newLogger(build(Options{}))
}

// Init rebuilds the global logger. Loggers already bound to a context keep
// their old core, so call it before anything derives child loggers.
func Init(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	gLevel.SetLevel(lvl)

	mu.Lock()
	defer mu.Unlock()
	gLogger = newLogger(build(opts))
	return nil
}

func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.DebugLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return lvl, err
	}
	return lvl, nil
}

func global() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return gLogger
}

func getEncoder(isProd bool) zapcore.Encoder {
	// 使用ECS兼容的encoder格式
	config := ecsCompatibleEncoder(!isProd)
	config.TimeKey = FieldTimestamp
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	if isProd {
		return zapcore.NewJSONEncoder(config)
	}
	return zapcore.NewConsoleEncoder(config)
}

// Elastic Common Schema (ECS) 兼容的encoder格式, 便于日志被ELK归档
func ecsCompatibleEncoder(withColor bool) zapcore.EncoderConfig {
	return ecszap.EncoderConfig{
		EnableName:       true,
		EncodeName:       zapcore.FullNameEncoder,
		EnableStackTrace: true,
		EnableCaller:     true,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      customLevelEncoder(withColor),
		EncodeDuration:   zapcore.StringDurationEncoder,
	}.ToZapCoreEncoderConfig()
}

func defaultOptions() []zap.Option {
	return []zap.Option{
		zap.WithCaller(true),
		// DPanic时自动增加Stacktrace
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.DPanicLevel)),
	}
}

func build(opts Options) *zap.Logger {
	if opts.Quiet {
		return zap.NewNop()
	}
	writer := zapcore.Lock(zapcore.AddSync(stdout))
	core := zapcore.NewCore(getEncoder(opts.JSON), writer, gLevel)
	return zap.New(core, defaultOptions()...)
}
