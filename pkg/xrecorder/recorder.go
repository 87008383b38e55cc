// Package xrecorder is the downstream consumer of listener output. All
// listeners feed one actor, so per-sensor bookkeeping needs no locks.
package xrecorder

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"imulog/pkg/xactor"
	"imulog/pkg/xcommon"
	"imulog/pkg/xfixed"
	"imulog/pkg/xlog"
	"imulog/pkg/xnet"
	"imulog/pkg/xsensor"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Args struct {
	Name        string
	LogSamples  bool               // one debug line per decoded sample
	DumpRaw     bool               // hex dump of every datagram at debug level
	Stream      *xnet.StreamServer // optional live JSON feed
	SampleRate  float64            // expected Hz per sensor, 0 skips the comparison
	PrintOnExit bool               // print the summary table on Shutdown
}

type SensorStats struct {
	Sensor        string
	Samples       uint64
	Datagrams     uint64
	Bytes         uint64
	Paused        uint64
	ShortPackets  uint64
	ReceiveErrors uint64
	BindErrors    uint64
	ConfigErrors  uint64
	First         time.Time
	Last          time.Time
	LastValues    xfixed.Vector
	LastSource    string
}

// Rate is the observed sample rate between the first and last sample.
func (s SensorStats) Rate() float64 {
	if s.Samples < 2 {
		return 0
	}
	return xcommon.SafeDivision(float64(s.Samples-1), s.Last.Sub(s.First).Seconds())
}

type Recorder struct {
	name        string
	logSamples  bool
	dumpRaw     bool
	stream      *xnet.StreamServer
	sampleRate  float64
	printOnExit bool

	stats map[string]*SensorStats
	actor *xactor.ActorGroutine
}

var _ xsensor.Sink = (*Recorder)(nil)

func New(ctx context.Context, arg Args) (*Recorder, error) {
	if arg.Name == "" {
		return nil, errors.New("recorder name is required")
	}
	r := &Recorder{
		name:        arg.Name,
		logSamples:  arg.LogSamples,
		dumpRaw:     arg.DumpRaw,
		stream:      arg.Stream,
		sampleRate:  arg.SampleRate,
		printOnExit: arg.PrintOnExit,
		stats:       make(map[string]*SensorStats),
	}
	actor, err := xactor.NewActorGroutine(ctx, r)
	if err != nil {
		return nil, errors.Wrap(err, "start recorder actor")
	}
	r.actor = actor
	return r, nil
}

func (r *Recorder) InitArg() xactor.ActorHandlerArgs {
	return xactor.ActorHandlerArgs{
		Syncs: []xactor.SyncHandlerArgs{xactor.SyncHandlerWrap(r.onSnapshot)},
		Asyncs: []xactor.AsyncHandlerArgs{
			xactor.AsyncHandlerWrap(r.onSample),
			xactor.AsyncHandlerWrap(r.onRaw),
			xactor.AsyncHandlerWrap(r.onError),
		},
	}
}

func (r *Recorder) Name() string { return r.name }

// Close runs on the actor goroutine after the mailbox is drained.
func (r *Recorder) Close(ctx context.Context) {
	if r.printOnExit {
		xcommon.PrintTable(ctx, SummaryHeader, SummaryRows(r.sorted(), r.sampleRate))
	}
	xlog.Get(ctx).Info("Recorder closed", zap.Int("sensors", len(r.stats)))
}

// Shutdown handles every queued event, then stops the recorder.
func (r *Recorder) Shutdown(ctx context.Context) {
	r.actor.Close(ctx)
}

func (r *Recorder) OnSample(ctx context.Context, e xsensor.SampleEvent) {
	r.post(ctx, &sampleMail{e})
}

func (r *Recorder) OnRaw(ctx context.Context, e xsensor.RawEvent) {
	r.post(ctx, &rawMail{e})
}

func (r *Recorder) OnError(ctx context.Context, e xsensor.ErrorEvent) {
	r.post(ctx, &errorMail{e})
}

// Snapshot returns the counters of every sensor seen so far, by name.
func (r *Recorder) Snapshot(ctx context.Context) ([]SensorStats, error) {
	resp, err := xactor.Call[snapshotReq, snapshotResp](ctx, r.actor, &snapshotReq{})
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (r *Recorder) post(ctx context.Context, m interface{}) {
	if err := r.actor.Post(ctx, m); err != nil {
		xlog.Get(ctx).Debug("Recorder dropped event", zap.Error(err))
	}
}

type sampleMail struct{ e xsensor.SampleEvent }
type rawMail struct{ e xsensor.RawEvent }
type errorMail struct{ e xsensor.ErrorEvent }
type snapshotReq struct{}
type snapshotResp struct{ Stats []SensorStats }

type streamFrame struct {
	Sensor     string        `json:"sensor"`
	Seq        uint64        `json:"seq"`
	Values     xfixed.Vector `json:"values"`
	Source     string        `json:"source"`
	ReceivedAt time.Time     `json:"ts"`
}

func (r *Recorder) sensor(name string) *SensorStats {
	s := r.stats[name]
	if s == nil {
		s = &SensorStats{Sensor: name}
		r.stats[name] = s
	}
	return s
}

func (r *Recorder) onSample(ctx context.Context, m *sampleMail) {
	e := m.e
	s := r.sensor(e.Sensor)
	s.Samples++
	if s.First.IsZero() {
		s.First = e.ReceivedAt
	}
	s.Last = e.ReceivedAt
	s.LastValues = e.Values
	if e.Source != nil {
		s.LastSource = e.Source.String()
	}

	if r.logSamples {
		xlog.Get(ctx).Debug("Received packet",
			zap.Float64s("values", e.Values[:]),
			zap.String("from", s.LastSource),
			zap.Uint64("seq", e.Seq))
	}

	if r.stream != nil {
		frame, err := json.Marshal(streamFrame{Sensor: e.Sensor, Seq: e.Seq, Values: e.Values, Source: s.LastSource, ReceivedAt: e.ReceivedAt})
		if err != nil {
			xlog.Get(ctx).Warn("Encode stream frame failed.", zap.Error(err))
			return
		}
		r.stream.Broadcast(ctx, frame)
	}
}

func (r *Recorder) onRaw(ctx context.Context, m *rawMail) {
	e := m.e
	s := r.sensor(e.Sensor)
	s.Datagrams++
	s.Bytes += uint64(len(e.Data))
	if e.Paused {
		s.Paused++
	}
	if r.dumpRaw {
		xlog.Get(ctx).Debug("Raw packet", zap.String("hex", hex.EncodeToString(e.Data)), zap.Bool("paused", e.Paused))
	}
}

func (r *Recorder) onError(ctx context.Context, m *errorMail) {
	e := m.e
	s := r.sensor(e.Sensor)

	var (
		short   *xsensor.ShortPacketError
		recvErr *xsensor.ReceiveError
		bindErr *xsensor.BindError
		cfgErr  *xsensor.ConfigError
	)
	switch {
	case errors.As(e.Err, &short):
		s.ShortPackets++
	case errors.As(e.Err, &recvErr):
		s.ReceiveErrors++
	case errors.As(e.Err, &bindErr):
		s.BindErrors++
	case errors.As(e.Err, &cfgErr):
		s.ConfigErrors++
	}
	xlog.Get(ctx).Warn("Sensor error", zap.String(xlog.FieldSensor, e.Sensor), zap.Error(e.Err))
}

func (r *Recorder) onSnapshot(ctx context.Context, req *snapshotReq) (*snapshotResp, error) {
	return &snapshotResp{Stats: r.sorted()}, nil
}

func (r *Recorder) sorted() []SensorStats {
	out := make([]SensorStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}
