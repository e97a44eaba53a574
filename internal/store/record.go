package store

import (
	"time"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/pipeline"
)

// FileMeta identifies the source file a run document describes.
type FileMeta struct {
	FileID     string
	SourcePath string
	SizeBytes  int64
	SHA256     string
}

// BuildRunDocument flattens a terminal run into the persisted shape. The
// accepted (final) outcome supplies the payloads; the full retry and re-run
// accounting rides along for the study's audit trail.
func BuildRunDocument(meta FileMeta, record pipeline.RunRecord, model string, now time.Time) map[string]any {
	final := record.Final()

	validation := map[string]any{
		"validation_flags": final.QualityFlags,
		"succeeded":        final.Validation.Succeeded,
	}
	if final.QualityScore != nil {
		validation["validation_score"] = *final.QualityScore
	}

	usage := map[string]any{
		"prompt_tokens": final.Extraction.Outcome.Usage.PromptTokens +
			final.Analysis.Outcome.Usage.PromptTokens +
			final.Validation.Outcome.Usage.PromptTokens,
		"thought_tokens": final.Extraction.Outcome.Usage.ThoughtTokens +
			final.Analysis.Outcome.Usage.ThoughtTokens +
			final.Validation.Outcome.Usage.ThoughtTokens,
		"total_tokens": final.Extraction.Outcome.Usage.TotalTokens +
			final.Analysis.Outcome.Usage.TotalTokens +
			final.Validation.Outcome.Usage.TotalTokens,
	}

	return map[string]any{
		KeyField:          meta.FileID,
		"source_path":     meta.SourcePath,
		"file_size_bytes": meta.SizeBytes,
		"file_hash":       meta.SHA256,
		"resume_data":     unwrap(final.Extraction.Outcome.Parsed, "resume_data"),
		"eda_data":        unwrap(final.Analysis.Outcome.Parsed, "eda_data"),
		"validation":      validation,
		"processing": map[string]any{
			"rerun_count": record.RerunCount,
			"stage_retries": map[string]any{
				pipeline.StageExtraction: final.Extraction.RetriesUsed,
				pipeline.StageAnalysis:   final.Analysis.RetriesUsed,
				pipeline.StageValidation: final.Validation.RetriesUsed,
			},
			"stage_success": map[string]any{
				pipeline.StageExtraction: final.Extraction.Succeeded,
				pipeline.StageAnalysis:   final.Analysis.Succeeded,
				pipeline.StageValidation: final.Validation.Succeeded,
			},
		},
		"llm_metadata": map[string]any{
			"model": model,
			"usage": usage,
		},
		"timestamp": now.UTC(),
	}
}

// unwrap strips the single-field envelope the stage prompts ask for, so the
// stored payload is always the inner object regardless of how the model
// wrapped it.
func unwrap(parsed map[string]any, field string) map[string]any {
	if inner, ok := parsed[field].(map[string]any); ok && len(parsed) == 1 {
		return inner
	}
	return parsed
}
