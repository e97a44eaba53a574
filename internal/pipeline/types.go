// Package pipeline drives the multi-agent extraction workflow: three
// LLM-backed stages run in sequence per document, each stage wrapped in a
// bounded retry loop, and the whole sequence re-run when the validation
// stage scores the result below threshold.
package pipeline

import (
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/parse"
)

// StageOutcome is the result of one LLM invocation attempt. It is created
// fresh per attempt and never mutated afterwards.
type StageOutcome struct {
	RawText        string
	Parsed         map[string]any
	Classification parse.Classification
	BlockReason    string
	AttemptIndex   int
	Usage          llm.Usage
}

// StageResult is what a stage's retry loop settles on: the last attempt,
// whether or not it succeeded, plus how many failed attempts preceded it.
type StageResult struct {
	Outcome     StageOutcome
	RetriesUsed int
	Succeeded   bool
}

// PipelineOutcome aggregates one full extraction → analysis → validation
// run. QualityScore is nil when the validation output carried no usable
// validation_score.
type PipelineOutcome struct {
	Extraction StageResult
	Analysis   StageResult
	Validation StageResult

	QualityScore *float64
	QualityFlags any
}

// RunRecord is the terminal result for one document: the initial pipeline
// outcome followed by any re-runs, in order.
type RunRecord struct {
	Outcomes   []PipelineOutcome
	RerunCount int
}

// Final returns the accepted outcome, the last element of the sequence.
func (r RunRecord) Final() PipelineOutcome {
	return r.Outcomes[len(r.Outcomes)-1]
}

// StageConfig parameterizes one stage of the pipeline.
type StageConfig struct {
	Name         string
	TemplatePath string
	Model        string
	Temperature  float64
	GoogleSearch bool
}
