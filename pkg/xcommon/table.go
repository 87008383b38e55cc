package xcommon

import (
	"context"
	"fmt"
	"io"
	"os"

	"imulog/pkg/xlog"

	"github.com/liushuochen/gotable"
	"go.uber.org/zap"
)

// RenderTable formats rows under the given header.
func RenderTable(keys []string, values [][]string) (string, error) {
	table, err := gotable.CreateSafeTable(keys...)
	if err != nil {
		return "", err
	}
	for _, vs := range values {
		if err := table.AddRow(vs); err != nil {
			return "", err
		}
	}
	return fmt.Sprint(table), nil
}

func printTable(w io.Writer, keys []string, values [][]string) error {
	s, err := RenderTable(keys, values)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func PrintTable(ctx context.Context, keys []string, values [][]string) {
	if err := printTable(os.Stdout, keys, values); err != nil {
		xlog.Get(ctx).Warn("Print table failed.", zap.Any("err", err))
	}
}
