package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/prompt"
)

// Prompt separators between a stage template and the upstream raw text.
// These match the study's prompt wiring and are part of the prompt contract,
// not cosmetic.
const (
	analysisInputSeparator       = "\nThe LLM Response:"
	validationDataSeparator      = "\nResume Data Response:"
	validationAnalysisSeparator  = "\nEDA Response:"
	validationScoreResponseField = "validation_score"
	validationFlagsResponseField = "validation_flags"
)

// Stage names the pipeline expects in its configuration, in order.
const (
	StageExtraction = "extraction"
	StageAnalysis   = "analysis"
	StageValidation = "validation"
)

// Pipeline is one extraction → analysis → validation sequence. A failed
// upstream stage still feeds its (possibly empty) raw text downstream; the
// validation stage is expected to catch the damage via its score.
type Pipeline struct {
	Extraction Agent
	Analysis   Agent
	Validation Agent
	MaxRetries int
	Logger     *zap.Logger
}

// Build assembles a Pipeline from stage configurations. Exactly the three
// known stages must be present, in pipeline order.
func Build(client llm.Client, stages []StageConfig, maxRetries int, logger *zap.Logger) (Pipeline, error) {
	expected := []string{StageExtraction, StageAnalysis, StageValidation}
	if len(stages) != len(expected) {
		return Pipeline{}, fmt.Errorf("pipeline needs %d stages, got %d", len(expected), len(stages))
	}

	agents := make([]Agent, 0, len(stages))
	for index, stage := range stages {
		if stage.Name != expected[index] {
			return Pipeline{}, fmt.Errorf("stage %d must be %q, got %q", index, expected[index], stage.Name)
		}
		template, loadErr := prompt.Load(stage.TemplatePath)
		if loadErr != nil {
			return Pipeline{}, fmt.Errorf("stage %s: %w", stage.Name, loadErr)
		}
		var tools []llm.Tool
		if stage.GoogleSearch {
			tools = append(tools, llm.ToolGoogleSearch)
		}
		agents = append(agents, Agent{
			Name:        stage.Name,
			Client:      client,
			Template:    template,
			Model:       stage.Model,
			Temperature: stage.Temperature,
			Tools:       tools,
			Logger:      logger,
		})
	}

	return Pipeline{
		Extraction: agents[0],
		Analysis:   agents[1],
		Validation: agents[2],
		MaxRetries: maxRetries,
		Logger:     logger,
	}, nil
}

// Run executes the three stages in order against one uploaded document and
// derives the quality score from the validation output. Persistence is the
// caller's job.
func (p Pipeline) Run(ctx context.Context, document *llm.Document) PipelineOutcome {
	extraction := p.Extraction.Run(ctx, func() (string, error) {
		return p.Extraction.Template.Render(nil)
	}, document, p.MaxRetries)

	analysis := p.Analysis.Run(ctx, func() (string, error) {
		return p.Analysis.Template.Text() + analysisInputSeparator + extraction.Outcome.RawText, nil
	}, document, p.MaxRetries)

	validation := p.Validation.Run(ctx, func() (string, error) {
		return p.Validation.Template.Text() +
			validationDataSeparator + extraction.Outcome.RawText +
			validationAnalysisSeparator + analysis.Outcome.RawText, nil
	}, document, p.MaxRetries)

	outcome := PipelineOutcome{
		Extraction: extraction,
		Analysis:   analysis,
		Validation: validation,
	}
	outcome.QualityScore = scoreFrom(validation.Outcome.Parsed)
	if validation.Outcome.Parsed != nil {
		outcome.QualityFlags = validation.Outcome.Parsed[validationFlagsResponseField]
	}
	return outcome
}

// scoreFrom coerces validation_score to a number. The model emits it as a
// JSON number or as a numeric string; anything else means no score.
func scoreFrom(parsed map[string]any) *float64 {
	if parsed == nil {
		return nil
	}
	switch value := parsed[validationScoreResponseField].(type) {
	case float64:
		return &value
	case string:
		score, parseErr := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if parseErr != nil {
			return nil
		}
		return &score
	default:
		return nil
	}
}
