package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imulog/pkg/xactor"
	"imulog/pkg/xcommon"
	"imulog/pkg/xconf"
	"imulog/pkg/xlog"
	"imulog/pkg/xmetrics"
	"imulog/pkg/xnet"
	"imulog/pkg/xrecorder"
	"imulog/pkg/xrunctl"
	"imulog/pkg/xsensor"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var configFile = flag.String("config", "", "sensor config yaml (default $IMU_CONFIG)")
var duration = flag.Duration("duration", 0, "experiment duration, 0 runs until SIGINT/SIGTERM")
var rate = flag.Float64("rate", 0, "expected IMU sample rate (Hz), 0 skips the comparison")
var startState = flag.String("state", "running", "run state once every sensor is bound (running|paused)")

func main() {
	flag.Parse()

	ctx := context.Background()
	defer xcommon.Recover(ctx)

	if err := run(ctx); err != nil {
		xlog.Get(ctx).Error("Logger failed.", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := xconf.Load(*configFile)
	if err != nil {
		return err
	}
	if err := xlog.Init(xlog.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON}); err != nil {
		return err
	}
	initial, err := xrunctl.ParseState(*startState)
	if err != nil {
		return err
	}
	if initial == xrunctl.Stopped {
		return errors.New("start state must be running or paused")
	}

	runID := uuid.NewString()
	ctx = xlog.NewContext(ctx, zap.String(xlog.FieldRun, runID))
	xlog.Get(ctx).Info("Config loaded", zap.String("file", cfg.File), zap.Int("sensors", len(cfg.Sensors)),
		zap.Duration("duration", *duration), zap.Float64("rate", *rate))

	// 所有actor在退出前处理完剩余mail
	defer xactor.CloseAll(ctx)

	sinks := xsensor.MultiSink{}
	var handlers map[string]http.Handler
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		m, err := xmetrics.New(reg)
		if err != nil {
			return err
		}
		sinks = append(sinks, m)
		handlers = xmetrics.Handlers(reg)
	}

	var stream *xnet.StreamServer
	if cfg.StreamAddr != "" {
		stream, err = xnet.NewStreamServer(ctx, xnet.StreamSvrArgs{Addr: cfg.StreamAddr, Path: cfg.StreamPath, Handlers: handlers})
		if err != nil {
			return err
		}
		defer stream.Close(ctx)
	} else if cfg.Metrics {
		xlog.Get(ctx).Warn("Metrics are collected but not served, set IMU_STREAM_ADDR to expose /metrics")
	}

	rec, err := xrecorder.New(ctx, xrecorder.Args{
		Name:        "recorder-" + runID,
		LogSamples:  cfg.LogSamples,
		DumpRaw:     cfg.RawDump,
		Stream:      stream,
		SampleRate:  *rate,
		PrintOnExit: true,
	})
	if err != nil {
		return err
	}
	defer rec.Shutdown(ctx)
	sinks = append(sinks, rec)

	sup := xsensor.NewSupervisor(xsensor.SupervisorArgs{Sink: sinks, PollInterval: cfg.PollInterval})
	handles := sup.Start(ctx, cfg.Sensors)
	if err := sup.WaitReady(ctx, handles); err != nil {
		return err
	}
	if !anyBound(handles) {
		return sup.Join(ctx, handles)
	}

	xlog.Get(ctx).Info("Starting experiment...")
	start := time.Now()
	if initial == xrunctl.Paused {
		sup.SignalPause(ctx)
	} else {
		sup.SignalRun(ctx)
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	var wg xcommon.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done(progressCtx)
		reportProgress(progressCtx, start)
	}()
	go func() {
		defer wg.Done(progressCtx)
		togglePause(progressCtx, sup)
	}()

	if xcommon.UntilSignalOrTimeout(ctx, *duration) {
		xlog.Get(ctx).Info("Experiment duration is over, stopping and saving data")
	}
	stopProgress()
	wg.Wait()

	joinErr := sup.Shutdown(ctx, handles, cfg.StopGrace)
	reportRate(ctx, rec, time.Since(start))
	rec.Shutdown(ctx)
	return joinErr
}

func anyBound(handles []*xsensor.Handle) bool {
	for _, h := range handles {
		if h.State() != xsensor.StateFailed {
			return true
		}
	}
	return false
}

func reportProgress(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			xlog.Get(ctx).Info("Seconds since start of experiment", zap.Int("elapsed", int(time.Since(start).Seconds())))
		case <-ctx.Done():
			return
		}
	}
}

// SIGUSR1 flips between running and paused.
func togglePause(ctx context.Context, sup *xsensor.Supervisor) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)
	for {
		select {
		case <-ch:
			if sup.Control().Get() == xrunctl.Paused {
				sup.SignalRun(ctx)
			} else {
				sup.SignalPause(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

func reportRate(ctx context.Context, rec *xrecorder.Recorder, elapsed time.Duration) {
	if *rate <= 0 {
		return
	}
	stats, err := rec.Snapshot(ctx)
	if err != nil {
		xlog.Get(ctx).Warn("Snapshot failed.", zap.Error(err))
		return
	}
	expected := *rate * elapsed.Seconds()
	for _, s := range stats {
		xlog.Get(ctx).Info("Sample count",
			zap.String(xlog.FieldSensor, s.Sensor),
			zap.Uint64("received", s.Samples),
			zap.Float64("expected", expected),
			zap.Float64("ratio", xcommon.SafeDivision(float64(s.Samples), expected)))
	}
}
