package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/gisa/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	turnsStarted, _ = meter.Int64Counter("gisa.turns.started",
		metric.WithDescription("Turns started by a final transcript"))
	turnsDropped, _ = meter.Int64Counter("gisa.turns.dropped",
		metric.WithDescription("Final transcripts discarded without starting a turn"))
	turnsFailed, _ = meter.Int64Counter("gisa.turns.failed",
		metric.WithDescription("Turns abandoned because a stage failed"))
)
