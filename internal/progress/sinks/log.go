package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/progress"
)

// LogSink writes one structured log line per event. Verdicts log at debug
// level so a default run only shows run and chunk milestones.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Duration("dur", evt.Dur),
		}
		switch evt.Stage {
		case progress.StageVerdict:
			fields = append(fields,
				zap.String("site", evt.Site),
				zap.String("url", evt.URL),
				zap.String("verdict", string(evt.Verdict)),
				zap.String("reason", string(evt.Reason)),
			)
			if evt.Note != "" {
				fields = append(fields, zap.String("note", evt.Note))
			}
			s.logger.Debug("verdict", fields...)
		case progress.StageChunkStart, progress.StageChunkDone:
			fields = append(fields, zap.Int("chunk", evt.Chunk), zap.Int("count", evt.Count))
			s.logger.Info("chunk progress", fields...)
		default:
			fields = append(fields, zap.Int("count", evt.Count), zap.String("note", evt.Note))
			s.logger.Info("run progress", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
