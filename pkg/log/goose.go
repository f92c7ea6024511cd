package log

import (
	"context"
	"strings"
)

// gooseLogger adapts the context logger to goose's Logger interface.
type gooseLogger struct {
	ctx context.Context
}

func NewGooseLoggerFromCtx(ctx context.Context) *gooseLogger {
	return &gooseLogger{ctx: ctx}
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	FromCtx(g.ctx).Fatal().Msgf(strings.TrimSpace(format), v...)
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	FromCtx(g.ctx).Debug().Msgf(strings.TrimSpace(format), v...)
}
