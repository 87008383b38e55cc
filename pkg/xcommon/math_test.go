package xcommon_test

import (
	"testing"

	"imulog/pkg/xcommon"

	"github.com/stretchr/testify/require"
)

func TestSafeDivision(t *testing.T) {
	require.Equal(t, 0, xcommon.SafeDivision(10, 0))
	require.Equal(t, uint64(5), xcommon.SafeDivision(uint64(10), 2))
	require.InDelta(t, 2.5, xcommon.SafeDivision(5.0, 2.0), 1e-9)
	require.Equal(t, 0.0, xcommon.SafeDivision(5.0, 0))
}
