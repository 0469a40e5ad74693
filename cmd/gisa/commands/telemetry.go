package commands

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// setupLogging routes every package's otelslog logger to w. The returned
// function flushes pending records.
func setupLogging(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)))
	global.SetLoggerProvider(provider)
	return provider.Shutdown, nil
}
