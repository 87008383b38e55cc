package xcommon_test

import (
	"context"
	"testing"

	"imulog/pkg/xcommon"

	"github.com/stretchr/testify/require"
)

func TestWaitGroup(t *testing.T) {
	ctx := context.Background()
	var wg xcommon.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done(ctx)
	}()
	wg.Wait()
}

func TestWaitGroupDoneOnPanic(t *testing.T) {
	ctx := context.Background()
	var wg xcommon.WaitGroup

	wg.Add(1)
	require.PanicsWithValue(t, "boom", func() {
		defer wg.Done(ctx)
		panic("boom")
	})
	wg.Wait()
}

func TestRecover(t *testing.T) {
	ctx := context.Background()
	require.Panics(t, func() {
		defer xcommon.Recover(ctx)
		var data map[int]string
		data[1] = "2"
	})
}
