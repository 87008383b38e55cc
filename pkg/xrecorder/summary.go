package xrecorder

import (
	"fmt"
	"strconv"
)

var SummaryHeader = []string{"sensor", "samples", "datagrams", "bytes", "paused", "short", "recv_err", "rate_hz", "expected_hz", "last_source"}

func SummaryRows(stats []SensorStats, expectedHz float64) [][]string {
	rows := make([][]string, 0, len(stats))
	expected := "-"
	if expectedHz > 0 {
		expected = strconv.FormatFloat(expectedHz, 'f', 1, 64)
	}
	for _, s := range stats {
		rows = append(rows, []string{
			s.Sensor,
			strconv.FormatUint(s.Samples, 10),
			strconv.FormatUint(s.Datagrams, 10),
			strconv.FormatUint(s.Bytes, 10),
			strconv.FormatUint(s.Paused, 10),
			strconv.FormatUint(s.ShortPackets, 10),
			strconv.FormatUint(s.ReceiveErrors, 10),
			fmt.Sprintf("%.1f", s.Rate()),
			expected,
			s.LastSource,
		})
	}
	return rows
}
