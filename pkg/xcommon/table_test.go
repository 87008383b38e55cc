package xcommon_test

import (
	"context"
	"testing"

	"imulog/pkg/xcommon"

	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out, err := xcommon.RenderTable([]string{"sensor", "samples"}, [][]string{{"imu0", "12"}, {"imu1", "7"}})
	require.NoError(t, err)
	require.Contains(t, out, "imu0")
	require.Contains(t, out, "samples")

	xcommon.PrintTable(context.Background(), []string{"sensor"}, [][]string{{"imu0"}})
}
