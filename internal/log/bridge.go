package log

import (
	"context"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
)

// EngineLogger is a logrus.Logger whose every entry is forwarded into the
// process-wide slog logger via a Hook, instead of writing to its own
// output. Third-party inference-engine bindings (pkg/engine) are built
// against logrus in their native SDKs; this lets their log lines land in
// the same rotated/Loki-fed sinks Init configures, under a "component"
// field identifying the source.
var EngineLogger = newBridgedLogger()

func newBridgedLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.TraceLevel)
	l.AddHook(&slogHook{})
	return l
}

// slogHook implements logrus.Hook by re-emitting each entry through slog.
type slogHook struct{}

func (h *slogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *slogHook) Fire(entry *logrus.Entry) error {
	attrs := make([]any, 0, len(entry.Data)*2+2)
	attrs = append(attrs, "component", "engine")
	for k, v := range entry.Data {
		attrs = append(attrs, k, v)
	}
	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	slog.Default().Log(ctx, bridgeLevel(entry.Level), entry.Message, attrs...)
	return nil
}

func bridgeLevel(l logrus.Level) slog.Level {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return slog.LevelDebug
	case logrus.InfoLevel:
		return slog.LevelInfo
	case logrus.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
