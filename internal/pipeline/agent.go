package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/parse"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/prompt"
)

// PromptBuilder produces the prompt for one stage attempt. It is rebuilt per
// attempt so upstream raw text is threaded in fresh on re-runs.
type PromptBuilder func() (string, error)

// Agent is one LLM-backed stage: a prompt template, model parameters, and a
// client. Invoke makes exactly one call; Run layers the bounded retry loop
// on top.
type Agent struct {
	Name        string
	Client      llm.Client
	Template    prompt.Template
	Model       string
	Temperature float64
	Tools       []llm.Tool
	Logger      *zap.Logger
}

// Invoke performs a single generation call. No retry, no parsing; transport
// failures pass through to the caller.
func (a Agent) Invoke(ctx context.Context, promptText string, document *llm.Document) (llm.Response, error) {
	return a.Client.Generate(ctx, llm.GenerateRequest{
		Model:       a.Model,
		Prompt:      promptText,
		Document:    document,
		Temperature: a.Temperature,
		Tools:       a.Tools,
	})
}

// Run executes the stage with bounded retries. Malformed and empty
// responses retry; a transport failure counts the same as an empty response
// so a flaky call cannot abort the pipeline before the retry budget is
// spent. The last outcome is always returned, valid or not.
func (a Agent) Run(ctx context.Context, build PromptBuilder, document *llm.Document, maxRetries int) StageResult {
	if maxRetries < 0 {
		maxRetries = 0
	}
	logger := a.logger()

	var outcome StageOutcome
	for attempt := 0; ; attempt++ {
		outcome = StageOutcome{AttemptIndex: attempt, Classification: parse.Empty}

		promptText, buildErr := build()
		if buildErr != nil {
			logger.Error("stage prompt construction failed",
				zap.String("stage", a.Name), zap.Int("attempt", attempt), zap.Error(buildErr))
		} else {
			response, callErr := a.Invoke(ctx, promptText, document)
			if callErr != nil {
				logger.Warn("stage call failed, treating as empty response",
					zap.String("stage", a.Name), zap.Int("attempt", attempt), zap.Error(callErr))
			} else {
				outcome.RawText = response.Text
				outcome.BlockReason = response.BlockReason
				outcome.Usage = response.Usage
				result := parse.Parse(response.Text)
				outcome.Classification = result.Classification
				outcome.Parsed = result.Parsed
				switch result.Classification {
				case parse.Malformed:
					logger.Warn("stage returned invalid JSON, retrying",
						zap.String("stage", a.Name), zap.Int("attempt", attempt), zap.Error(result.Err))
				case parse.Empty:
					logger.Warn("stage returned no text",
						zap.String("stage", a.Name), zap.Int("attempt", attempt),
						zap.String("block_reason", response.BlockReason))
				}
			}
		}

		if outcome.Classification == parse.Valid {
			return StageResult{Outcome: outcome, RetriesUsed: attempt, Succeeded: true}
		}
		if attempt >= maxRetries {
			return StageResult{Outcome: outcome, RetriesUsed: maxRetries, Succeeded: false}
		}
	}
}

func (a Agent) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}
