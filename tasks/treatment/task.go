// Package treatment drives the phase-2 batch: for every standardized resume
// it generates a refined control plus three treated versions, validates each
// generation with an embedding similarity gate, swaps employer names per
// treatment, and saves all four documents together or not at all.
package treatment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/config"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/parse"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/prompt"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/store"
)

const (
	StatusTreated = "treated"
	StatusFailed  = "failed"

	resumeDataField = "resume_data"
)

// Task wires the collaborators for one treatment batch.
type Task struct {
	Client   llm.Client
	Embedder llm.Embedder
	Store    store.Store
	Reviewer MappingReviewer
	Logger   *zap.Logger
	Rand     *rand.Rand
	Now      func() time.Time

	Config         config.TreatmentYAML
	Model          string
	EmbeddingModel string
	Temperature    float64
	MaxRetries     int
	Sector         string
	Files          []string
}

// FileResult is one source resume's outcome.
type FileResult struct {
	FileID    string
	Status    string
	Reason    string
	Documents int
}

// Report is the batch outcome.
type Report struct {
	Files []FileResult
}

// Treated counts source resumes whose full document set was saved.
func (r Report) Treated() int {
	count := 0
	for _, file := range r.Files {
		if file.Status == StatusTreated {
			count++
		}
	}
	return count
}

type templates struct {
	treatment prompt.Template
	refiner   prompt.Template
	research  prompt.Template
}

// Run processes every selected source resume sequentially. Company mappings
// go through the reviewer, which may block on operator input; concurrency
// would interleave those reviews.
func (t Task) Run(ctx context.Context) (Report, error) {
	logger := t.logger()

	loaded, templateErr := t.loadTemplates()
	if templateErr != nil {
		return Report{}, templateErr
	}

	education, educationErr := LoadTable(t.Config.Tables.Education)
	if educationErr != nil {
		return Report{}, educationErr
	}
	work, workErr := LoadTable(t.Config.Tables.Work)
	if workErr != nil {
		return Report{}, workErr
	}
	education = FilterSector(education, t.Sector)
	work = FilterSector(work, t.Sector)
	if len(education) < 2 || len(work) < 2 {
		return Report{}, fmt.Errorf("sector %s needs at least two education and two work treatments", t.Sector)
	}

	fileIDs, selectErr := t.selectFiles(ctx)
	if selectErr != nil {
		return Report{}, selectErr
	}
	if len(fileIDs) == 0 {
		return Report{}, fmt.Errorf("no source resumes found for sector %s", t.Sector)
	}
	logger.Info("starting treatment batch",
		zap.String("sector", t.Sector), zap.Int("files", len(fileIDs)))

	var report Report
	for _, fileID := range fileIDs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		result := t.processFile(ctx, loaded, education, work, fileID)
		report.Files = append(report.Files, result)
	}
	logger.Info("treatment batch finished",
		zap.Int("treated", report.Treated()), zap.Int("total", len(report.Files)))
	return report, nil
}

func (t Task) loadTemplates() (templates, error) {
	treatmentTemplate, treatmentErr := prompt.Load(t.Config.Prompts.Treatment,
		PlaceholderResume, PlaceholderTreatment, PlaceholderTreatmentType, PlaceholderStyleGuide)
	if treatmentErr != nil {
		return templates{}, treatmentErr
	}
	refinerTemplate, refinerErr := prompt.Load(t.Config.Prompts.ControlRefiner, PlaceholderResume)
	if refinerErr != nil {
		return templates{}, refinerErr
	}
	researchTemplate, researchErr := prompt.Load(t.Config.Prompts.CompanyResearch, PlaceholderCompanyNames)
	if researchErr != nil {
		return templates{}, researchErr
	}
	return templates{treatment: treatmentTemplate, refiner: refinerTemplate, research: researchTemplate}, nil
}

// selectFiles returns the source file ids to process: the explicit list
// filtered against the store, or every id carrying the sector prefix.
func (t Task) selectFiles(ctx context.Context) ([]string, error) {
	known, listErr := t.Store.ListKeys(ctx, t.Config.Storage.SourceCollection)
	if listErr != nil {
		return nil, listErr
	}
	if len(t.Files) > 0 {
		knownSet := make(map[string]struct{}, len(known))
		for _, id := range known {
			knownSet[id] = struct{}{}
		}
		var selected []string
		for _, id := range t.Files {
			if _, ok := knownSet[id]; ok {
				selected = append(selected, id)
			}
		}
		return selected, nil
	}
	sector := strings.ToUpper(strings.TrimSpace(t.Sector))
	var selected []string
	for _, id := range known {
		if strings.Contains(id, sector) {
			selected = append(selected, id)
		}
	}
	return selected, nil
}

func (t Task) processFile(ctx context.Context, loaded templates, education []Row, work []Row, fileID string) FileResult {
	logger := t.logger().With(zap.String("file", fileID))

	sourceDocument, findErr := t.Store.FindByKey(ctx, t.Config.Storage.SourceCollection, fileID)
	if findErr != nil {
		logger.Error("loading source resume failed", zap.Error(findErr))
		return FileResult{FileID: fileID, Status: StatusFailed, Reason: "load source: " + findErr.Error()}
	}
	sourceResume, ok := sourceDocument[resumeDataField].(map[string]any)
	if !ok || len(sourceResume) == 0 {
		logger.Error("source document has no resume data")
		return FileResult{FileID: fileID, Status: StatusFailed, Reason: "missing resume data"}
	}

	controlResume, refineErr := t.refineControl(ctx, loaded.refiner, sourceResume)
	if refineErr != nil {
		logger.Error("control refinement failed", zap.Error(refineErr))
		return FileResult{FileID: fileID, Status: StatusFailed, Reason: "refine control: " + refineErr.Error()}
	}

	prepared, prepareErr := PrepareTreatments(education, work, controlResume, loaded.treatment, t.rng())
	if prepareErr != nil {
		logger.Error("treatment preparation failed", zap.Error(prepareErr))
		return FileResult{FileID: fileID, Status: StatusFailed, Reason: "prepare treatments: " + prepareErr.Error()}
	}

	mappings, mappingErr := t.researchCompanies(ctx, loaded.research, controlResume)
	if mappingErr != nil {
		logger.Error("company research failed", zap.Error(mappingErr))
		return FileResult{FileID: fileID, Status: StatusFailed, Reason: "company research: " + mappingErr.Error()}
	}

	baseID := strings.TrimSuffix(fileID, ".pdf")
	common := map[string]any{
		"original_file_id": fileID,
		"industry_prefix":  sourceDocument["industry_prefix"],
		"file_size_bytes":  sourceDocument["file_size_bytes"],
		"source_file_hash": sourceDocument["file_hash"],
	}

	documents := []map[string]any{t.controlDocument(common, baseID, controlResume)}
	for _, version := range prepared {
		treated, score, generateErr := t.generateTreated(ctx, logger, controlResume, version)
		if generateErr != nil {
			logger.Error("treatment generation failed, suppressing the whole file",
				zap.String("treatment", version.Type), zap.Error(generateErr))
			return FileResult{FileID: fileID, Status: StatusFailed, Reason: version.Type + ": " + generateErr.Error()}
		}
		treated = ReplaceCompanies(treated, mappings, version.Type)
		documents = append(documents, t.treatedDocument(common, baseID, version, treated, score))
	}

	for _, document := range documents {
		documentID := document["document_id"].(string)
		if upsertErr := t.Store.Upsert(ctx, t.Config.Storage.TargetCollection, documentID, document); upsertErr != nil {
			logger.Error("saving treated documents failed", zap.Error(upsertErr))
			return FileResult{FileID: fileID, Status: StatusFailed, Reason: "save: " + upsertErr.Error()}
		}
	}
	logger.Info("saved treated resume set", zap.Int("documents", len(documents)))
	return FileResult{FileID: fileID, Status: StatusTreated, Documents: len(documents)}
}

// refineControl asks the model to strip North-American identifying elements
// from the source resume and returns the refined resume data.
func (t Task) refineControl(ctx context.Context, refiner prompt.Template, sourceResume map[string]any) (map[string]any, error) {
	resumeJSON, encodeErr := encodeValue(sourceResume)
	if encodeErr != nil {
		return nil, encodeErr
	}
	rendered, renderErr := refiner.Render(map[string]string{PlaceholderResume: resumeJSON})
	if renderErr != nil {
		return nil, renderErr
	}
	response, generateErr := t.Client.Generate(ctx, llm.GenerateRequest{
		Model:       t.Model,
		Prompt:      rendered,
		Temperature: t.Temperature,
	})
	if generateErr != nil {
		return nil, generateErr
	}
	result := parse.Parse(response.Text)
	if result.Classification != parse.Valid {
		return nil, fmt.Errorf("control refiner returned %s output", result.Classification)
	}
	if refined, ok := result.Parsed[resumeDataField].(map[string]any); ok {
		return refined, nil
	}
	return result.Parsed, nil
}

// researchCompanies proposes replacement employers per treatment type and
// routes them through the reviewer.
func (t Task) researchCompanies(ctx context.Context, research prompt.Template, controlResume map[string]any) ([]CompanyMapping, error) {
	pairsJSON, encodeErr := encodeValue(CompanyPairs(controlResume))
	if encodeErr != nil {
		return nil, encodeErr
	}
	rendered, renderErr := research.Render(map[string]string{PlaceholderCompanyNames: pairsJSON})
	if renderErr != nil {
		return nil, renderErr
	}
	response, generateErr := t.Client.Generate(ctx, llm.GenerateRequest{
		Model:       t.Model,
		Prompt:      rendered,
		Temperature: t.Temperature,
		Tools:       []llm.Tool{llm.ToolGoogleSearch},
	})
	if generateErr != nil {
		return nil, generateErr
	}
	proposed, decodeErr := DecodeCompanyMappings(response.Text)
	if decodeErr != nil {
		return nil, decodeErr
	}
	return t.reviewer().Review(ctx, proposed)
}

// generateTreated runs the bounded generate-and-validate loop for one
// treated version. A version that never clears the similarity gate is an
// error; the caller suppresses the whole file.
func (t Task) generateTreated(ctx context.Context, logger *zap.Logger, controlResume map[string]any, version Prepared) (map[string]any, float64, error) {
	for attempt := 0; attempt < t.MaxRetries; attempt++ {
		response, generateErr := t.Client.Generate(ctx, llm.GenerateRequest{
			Model:       t.Model,
			Prompt:      version.Prompt,
			Temperature: t.Temperature,
		})
		if generateErr != nil {
			logger.Warn("treatment generation call failed",
				zap.String("treatment", version.Type), zap.Int("attempt", attempt), zap.Error(generateErr))
			continue
		}
		result := parse.Parse(response.Text)
		if result.Classification != parse.Valid {
			logger.Warn("treatment generation returned unusable output",
				zap.String("treatment", version.Type), zap.Int("attempt", attempt),
				zap.String("classification", result.Classification.String()))
			continue
		}
		treated, ok := result.Parsed[resumeDataField].(map[string]any)
		if !ok {
			treated = result.Parsed
		}

		score, similarityErr := FocusedSimilarity(ctx, t.Embedder, t.EmbeddingModel, controlResume, treated)
		if similarityErr != nil {
			logger.Warn("similarity scoring failed",
				zap.String("treatment", version.Type), zap.Int("attempt", attempt), zap.Error(similarityErr))
			continue
		}
		if score >= t.Config.Similarity.Threshold {
			return treated, score, nil
		}
		logger.Warn("similarity below threshold, regenerating",
			zap.String("treatment", version.Type),
			zap.String("style_guide", version.StyleGuide),
			zap.Float64("score", score),
			zap.Float64("threshold", t.Config.Similarity.Threshold),
			zap.Int("attempt", attempt))
	}
	return nil, 0, fmt.Errorf("similarity gate not cleared after %d attempts", t.MaxRetries)
}

func (t Task) controlDocument(common map[string]any, baseID string, controlResume map[string]any) map[string]any {
	document := map[string]any{
		store.KeyField:         baseID + "_" + TypeControl,
		"document_id":          baseID + "_" + TypeControl,
		"treatment_type":       TypeControl,
		"generation_timestamp": t.now(),
		"validation": map[string]any{
			"focused_similarity_score": "",
			"passed_threshold":         "N/A",
		},
		"treatment_applied": "N/A",
		resumeDataField:     controlResume,
	}
	for key, value := range common {
		document[key] = value
	}
	return document
}

func (t Task) treatedDocument(common map[string]any, baseID string, version Prepared, treated map[string]any, score float64) map[string]any {
	document := map[string]any{
		store.KeyField:         baseID + "_" + version.Type,
		"document_id":          baseID + "_" + version.Type,
		"treatment_type":       version.Type,
		"generation_timestamp": t.now(),
		"validation": map[string]any{
			"focused_similarity_score": score,
			"passed_threshold":         true,
		},
		"style_guide":       version.StyleGuide,
		"treatment_applied": version.TreatmentApplied,
		resumeDataField:     treated,
	}
	for key, value := range common {
		document[key] = value
	}
	return document
}

func (t Task) reviewer() MappingReviewer {
	if t.Reviewer != nil {
		return t.Reviewer
	}
	return AutoAccept{}
}

func (t Task) rng() *rand.Rand {
	if t.Rand != nil {
		return t.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func (t Task) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t Task) logger() *zap.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}
