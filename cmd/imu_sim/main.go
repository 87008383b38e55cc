package main

import (
	"context"
	"flag"
	"math"
	"time"

	"imulog/pkg/xcommon"
	"imulog/pkg/xfixed"
	"imulog/pkg/xlatency"
	"imulog/pkg/xlog"
	"imulog/pkg/xnet"

	"go.uber.org/zap"
)

var addr = flag.String("addr", "127.0.0.1:9751", "logger sensor addr")
var rate = flag.Float64("rate", 100, "sample rate (Hz)")
var duration = flag.Duration("duration", 0, "send duration, 0 runs until SIGINT/SIGTERM")
var loss = flag.Int("loss", 0, "loss packet 0~100")
var latency = flag.Int("latency", 0, "rand extra latency (ms)")
var terminator = flag.Bool("terminator", true, "append the reserved trailing byte")

func main() {
	flag.Parse()

	ctx := context.Background()
	defer xcommon.Recover(ctx)

	if *rate <= 0 {
		panic("rate must be positive")
	}

	sender, err := xnet.NewUDPSender(ctx, xnet.UDPSenderArgs{Addr: *addr})
	if err != nil {
		panic(err)
	}
	defer sender.Close(ctx)

	link, err := xlatency.NewLink(ctx, xlatency.LinkArgs{
		Name:    "sim-" + *addr,
		Loss:    uint32(*loss),
		Latency: uint32(*latency),
		Send: func(ctx context.Context, msg []byte) {
			if err := sender.SendMsg(ctx, msg); err != nil {
				xlog.Get(ctx).Warn("Sim send failed.", zap.Error(err))
			}
		},
	})
	if err != nil {
		panic(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg xcommon.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done(runCtx)
		generate(runCtx, link)
	}()

	xcommon.UntilSignalOrTimeout(ctx, *duration)
	cancel()
	wg.Wait()

	if stats, err := link.Stats(ctx); err == nil {
		xlog.Get(ctx).Info("Sim done", zap.Uint32("packets", stats.Packets), zap.Uint32("lost", stats.Lost),
			zap.Uint32("sent", stats.Sent), zap.Int64("avg_delay_ms", stats.AverageDelay()))
	}
	link.Shutdown(ctx)
}

func generate(ctx context.Context, link *xlatency.Link) {
	period := time.Duration(float64(time.Second) / *rate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case now := <-ticker.C:
			pkt, err := xfixed.EncodePacket(sample(now.Sub(start).Seconds()))
			if err != nil {
				xlog.Get(ctx).Warn("Encode sample failed.", zap.Error(err))
				continue
			}
			if *terminator {
				pkt = append(pkt, 0)
			}
			if err := link.Forward(ctx, pkt); err != nil {
				xlog.Get(ctx).Warn("Forward failed.", zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// sample is a slow rotation about z: gyro, accel, then magnetometer.
func sample(t float64) xfixed.Vector {
	w := 2 * math.Pi * 0.5
	return xfixed.Vector{
		0.1 * math.Sin(w*t), 0.1 * math.Cos(w*t), w,
		0.3 * math.Cos(w*t), 0.3 * math.Sin(w*t), -9.80665,
		25 * math.Cos(w*t), -25 * math.Sin(w*t), 40,
	}
}
