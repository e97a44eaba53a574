package treatment

import (
	"context"
	"math"
	"strings"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
)

// RephrasedText pulls the parts the generation actually rewrites: the
// summary and the work highlights. Scoring only these keeps the similarity
// gate focused on the rephrasing instead of the injected treatment content.
func RephrasedText(resumeData map[string]any) string {
	var parts []string

	if basics, ok := resumeData["basics"].(map[string]any); ok {
		if summary, ok := basics["summary"].(string); ok && summary != "" {
			parts = append(parts, summary)
		}
	}
	if jobs, ok := resumeData["work_experience"].([]any); ok {
		for _, entry := range jobs {
			job, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			highlights, ok := job["highlights"].([]any)
			if !ok {
				continue
			}
			var lines []string
			for _, highlight := range highlights {
				if line, ok := highlight.(string); ok {
					lines = append(lines, line)
				}
			}
			if len(lines) > 0 {
				parts = append(parts, strings.Join(lines, " "))
			}
		}
	}
	return strings.Join(parts, " ")
}

// Cosine is the standard cosine similarity; zero vectors score 0.
func Cosine(a []float64, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for index := range a {
		dot += a[index] * b[index]
		normA += a[index] * a[index]
		normB += b[index] * b[index]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FocusedSimilarity embeds the rephrased text of both versions and scores
// them. Empty text on either side scores 0, which always fails the gate.
func FocusedSimilarity(ctx context.Context, embedder llm.Embedder, model string, controlData map[string]any, treatedData map[string]any) (float64, error) {
	controlText := RephrasedText(controlData)
	treatedText := RephrasedText(treatedData)
	if controlText == "" || treatedText == "" {
		return 0, nil
	}
	controlVector, controlErr := embedder.EmbedText(ctx, model, controlText)
	if controlErr != nil {
		return 0, controlErr
	}
	treatedVector, treatedErr := embedder.EmbedText(ctx, model, treatedText)
	if treatedErr != nil {
		return 0, treatedErr
	}
	return Cosine(controlVector, treatedVector), nil
}
