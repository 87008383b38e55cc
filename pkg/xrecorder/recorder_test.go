package xrecorder_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"imulog/pkg/xfixed"
	"imulog/pkg/xnet"
	"imulog/pkg/xrecorder"
	"imulog/pkg/xsensor"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var src = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001}

func sample(sensor string, seq uint64, at time.Time) xsensor.SampleEvent {
	return xsensor.SampleEvent{
		Sensor:     sensor,
		Seq:        seq,
		Values:     xfixed.Vector{1.5, -2.25, 0, 0, 0, 0, 0, 0, 9.8},
		Source:     src,
		ReceivedAt: at,
	}
}

func TestRecorderCounts(t *testing.T) {
	ctx := context.Background()
	r, err := xrecorder.New(ctx, xrecorder.Args{Name: "recorder-counts", LogSamples: true, DumpRaw: true})
	require.NoError(t, err)
	defer r.Shutdown(ctx)

	start := time.Now()
	for i := 0; i < 11; i++ {
		r.OnRaw(ctx, xsensor.RawEvent{Sensor: "imu0", Seq: uint64(i + 1), Data: make([]byte, 36), Source: src, ReceivedAt: start})
		r.OnSample(ctx, sample("imu0", uint64(i+1), start.Add(time.Duration(i)*100*time.Millisecond)))
	}
	r.OnRaw(ctx, xsensor.RawEvent{Sensor: "imu1", Data: make([]byte, 36), Paused: true})
	r.OnError(ctx, xsensor.ErrorEvent{Sensor: "imu1", Err: &xsensor.ShortPacketError{Sensor: "imu1", Len: 3, Err: xfixed.ErrShortPacket}})
	r.OnError(ctx, xsensor.ErrorEvent{Sensor: "imu1", Err: &xsensor.ReceiveError{Sensor: "imu1", Err: errors.New("boom")}})

	stats, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	imu0 := stats[0]
	require.Equal(t, "imu0", imu0.Sensor)
	require.EqualValues(t, 11, imu0.Samples)
	require.EqualValues(t, 11, imu0.Datagrams)
	require.EqualValues(t, 11*36, imu0.Bytes)
	require.Equal(t, src.String(), imu0.LastSource)
	require.Equal(t, 9.8, imu0.LastValues[8])
	require.InDelta(t, 10.0, imu0.Rate(), 0.001)

	imu1 := stats[1]
	require.Equal(t, "imu1", imu1.Sensor)
	require.EqualValues(t, 0, imu1.Samples)
	require.EqualValues(t, 1, imu1.Paused)
	require.EqualValues(t, 1, imu1.ShortPackets)
	require.EqualValues(t, 1, imu1.ReceiveErrors)
	require.Zero(t, imu1.Rate())
}

func TestRecorderDropsAfterShutdown(t *testing.T) {
	ctx := context.Background()
	r, err := xrecorder.New(ctx, xrecorder.Args{Name: "recorder-closed"})
	require.NoError(t, err)
	r.OnSample(ctx, sample("imu0", 1, time.Now()))
	r.Shutdown(ctx)

	r.OnSample(ctx, sample("imu0", 2, time.Now()))
	_, err = r.Snapshot(ctx)
	require.Error(t, err)
}

func TestRecorderRequiresName(t *testing.T) {
	_, err := xrecorder.New(context.Background(), xrecorder.Args{})
	require.Error(t, err)
}

func TestRecorderStreamsSamples(t *testing.T) {
	ctx := context.Background()
	svr, err := xnet.NewStreamServer(ctx, xnet.StreamSvrArgs{Addr: "127.0.0.1:0", Path: "/samples"})
	require.NoError(t, err)
	defer svr.Close(ctx)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/samples", svr.Addr()), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return svr.Clients() == 1 }, time.Second, 5*time.Millisecond)

	r, err := xrecorder.New(ctx, xrecorder.Args{Name: "recorder-stream", Stream: svr})
	require.NoError(t, err)
	defer r.Shutdown(ctx)

	r.OnSample(ctx, sample("imu0", 7, time.Now()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Sensor string    `json:"sensor"`
		Seq    uint64    `json:"seq"`
		Values []float64 `json:"values"`
		Source string    `json:"source"`
	}
	require.NoError(t, json.Unmarshal(msg, &frame))
	require.Equal(t, "imu0", frame.Sensor)
	require.EqualValues(t, 7, frame.Seq)
	require.Len(t, frame.Values, xfixed.WordsPerPacket)
	require.Equal(t, -2.25, frame.Values[1])
	require.Equal(t, src.String(), frame.Source)
}

func TestSummaryRows(t *testing.T) {
	now := time.Now()
	rows := xrecorder.SummaryRows([]xrecorder.SensorStats{
		{Sensor: "imu0", Samples: 3, Datagrams: 4, Bytes: 144, First: now, Last: now.Add(time.Second), LastSource: "127.0.0.1:1"},
	}, 100)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(xrecorder.SummaryHeader))
	require.Equal(t, []string{"imu0", "3", "4", "144", "0", "0", "0", "2.0", "100.0", "127.0.0.1:1"}, rows[0])

	rows = xrecorder.SummaryRows([]xrecorder.SensorStats{{Sensor: "imu1"}}, 0)
	require.Equal(t, "-", rows[0][8])
}
