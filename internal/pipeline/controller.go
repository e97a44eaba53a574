package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
)

// Controller wraps a Pipeline with the re-run policy: when the validation
// score comes back below threshold, the entire three-stage pipeline runs
// again from scratch, up to MaxReruns times. Each re-run is fully
// independent so the model gets a fresh attempt at every stage.
type Controller struct {
	Pipeline       Pipeline
	MaxReruns      int
	ScoreThreshold float64
	Logger         *zap.Logger
}

type controllerState int

const (
	stateInitial controllerState = iota
	stateEvaluate
	stateRerun
	stateTerminal
)

// Run drives the state machine to a terminal state and returns the full
// outcome sequence. It always terminates: the re-run counter increments on
// every entry into the rerun state, and an unparseable score accepts the
// result immediately rather than looping.
func (c Controller) Run(ctx context.Context, document *llm.Document) RunRecord {
	logger := c.logger()
	record := RunRecord{}

	state := stateInitial
	for state != stateTerminal {
		switch state {
		case stateInitial:
			record.Outcomes = append(record.Outcomes, c.Pipeline.Run(ctx, document))
			state = stateEvaluate

		case stateEvaluate:
			last := record.Final()
			switch {
			case last.QualityScore == nil:
				logger.Warn("validation score unavailable, accepting result as-is",
					zap.Int("rerun_count", record.RerunCount))
				state = stateTerminal
			case *last.QualityScore >= c.ScoreThreshold:
				state = stateTerminal
			case record.RerunCount < c.MaxReruns:
				logger.Warn("validation score below threshold, re-running pipeline",
					zap.Float64("score", *last.QualityScore),
					zap.Float64("threshold", c.ScoreThreshold),
					zap.Any("validation_flags", last.QualityFlags),
					zap.Int("rerun_count", record.RerunCount))
				state = stateRerun
			default:
				logger.Warn("re-run budget exhausted, accepting last result",
					zap.Float64("score", *last.QualityScore),
					zap.Int("rerun_count", record.RerunCount))
				state = stateTerminal
			}

		case stateRerun:
			record.RerunCount++
			record.Outcomes = append(record.Outcomes, c.Pipeline.Run(ctx, document))
			state = stateEvaluate
		}
	}
	return record
}

func (c Controller) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}
