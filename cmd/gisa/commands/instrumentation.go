package commands

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/gisa/cmd/gisa"

var logger = otelslog.NewLogger(scopeName)
