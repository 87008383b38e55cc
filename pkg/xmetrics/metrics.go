// Package xmetrics exposes listener output as Prometheus series.
package xmetrics

import (
	"context"
	"net/http"

	"imulog/pkg/xsensor"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	KindConfig  = "config"
	KindBind    = "bind"
	KindReceive = "receive"
	KindShort   = "short_packet"
	KindOther   = "other"
)

// Metrics is an xsensor.Sink. Prometheus collectors are safe for concurrent
// use, so listeners call it directly.
type Metrics struct {
	samples    *prometheus.CounterVec
	datagrams  *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	paused     *prometheus.CounterVec
	errs       *prometheus.CounterVec
	lastSample *prometheus.GaugeVec
}

var _ xsensor.Sink = (*Metrics)(nil)

// New registers the collectors on reg, prometheus.DefaultRegisterer if nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imu_samples_total",
			Help: "Decoded sample vectors per sensor.",
		}, []string{"sensor"}),
		datagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imu_datagrams_total",
			Help: "Datagrams read per sensor, including paused and malformed ones.",
		}, []string{"sensor"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imu_received_bytes_total",
			Help: "Datagram payload bytes read per sensor.",
		}, []string{"sensor"}),
		paused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imu_paused_dropped_total",
			Help: "Datagrams discarded while the run was paused.",
		}, []string{"sensor"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imu_errors_total",
			Help: "Listener errors by kind.",
		}, []string{"sensor", "kind"}),
		lastSample: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "imu_last_sample_timestamp_seconds",
			Help: "Receive time of the newest sample.",
		}, []string{"sensor"}),
	}
	for _, c := range []prometheus.Collector{m.samples, m.datagrams, m.bytes, m.paused, m.errs, m.lastSample} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register imu metrics")
		}
	}
	return m, nil
}

func (m *Metrics) OnSample(ctx context.Context, e xsensor.SampleEvent) {
	m.samples.WithLabelValues(e.Sensor).Inc()
	m.lastSample.WithLabelValues(e.Sensor).Set(float64(e.ReceivedAt.UnixNano()) / 1e9)
}

func (m *Metrics) OnRaw(ctx context.Context, e xsensor.RawEvent) {
	m.datagrams.WithLabelValues(e.Sensor).Inc()
	m.bytes.WithLabelValues(e.Sensor).Add(float64(len(e.Data)))
	if e.Paused {
		m.paused.WithLabelValues(e.Sensor).Inc()
	}
}

func (m *Metrics) OnError(ctx context.Context, e xsensor.ErrorEvent) {
	m.errs.WithLabelValues(e.Sensor, ErrorKind(e.Err)).Inc()
}

func ErrorKind(err error) string {
	var (
		cfgErr   *xsensor.ConfigError
		bindErr  *xsensor.BindError
		recvErr  *xsensor.ReceiveError
		shortErr *xsensor.ShortPacketError
	)
	switch {
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &bindErr):
		return KindBind
	case errors.As(err, &recvErr):
		return KindReceive
	case errors.As(err, &shortErr):
		return KindShort
	default:
		return KindOther
	}
}

// Handlers are the routes to mount on the stream server.
func Handlers(g prometheus.Gatherer) map[string]http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return map[string]http.Handler{
		"/metrics": promhttp.HandlerFor(g, promhttp.HandlerOpts{}),
		"/healthz": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}),
	}
}
