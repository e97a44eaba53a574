package treatment

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/config"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/store"
)

type scriptedClient struct {
	mu        sync.Mutex
	responses []llm.Response
	calls     int
}

func (c *scriptedClient) Generate(context.Context, llm.GenerateRequest) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.calls
	if index >= len(c.responses) {
		index = len(c.responses) - 1
	}
	c.calls++
	return c.responses[index], nil
}

func (c *scriptedClient) Upload(context.Context, string) (llm.Document, error) {
	return llm.Document{}, nil
}

func (c *scriptedClient) Release(context.Context, llm.Document) error { return nil }

// constantEmbedder returns the same vector for every text, so similarity is
// always 1.
type constantEmbedder struct{ vector []float64 }

func (e constantEmbedder) EmbedText(context.Context, string, string) ([]float64, error) {
	return e.vector, nil
}

type memoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
}

func newMemoryStore() *memoryStore {
	return &memoryStore{collections: map[string]map[string]map[string]any{}}
}

func (s *memoryStore) Upsert(_ context.Context, collection string, key string, document map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]map[string]any{}
	}
	s.collections[collection][key] = document
	return nil
}

func (s *memoryStore) FindByKey(_ context.Context, collection string, key string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	document, ok := s.collections[collection][key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return document, nil
}

func (s *memoryStore) ListKeys(_ context.Context, collection string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.collections[collection] {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *memoryStore) Close(context.Context) error { return nil }

func writeTreatmentFixtures(t *testing.T) config.TreatmentYAML {
	t.Helper()
	directory := t.TempDir()

	writeFile := func(name string, content string) string {
		path := filepath.Join(directory, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	var cfg config.TreatmentYAML
	cfg.Storage.SourceCollection = "Standardized_resume_data"
	cfg.Storage.TargetCollection = "Treated_resumes"
	cfg.Similarity.Threshold = 0.60
	cfg.Tables.Education = writeFile("education.yaml", `
- sector: ITC
  id: edu-1
  institution: Seneca College
- sector: ITC
  id: edu-2
  institution: George Brown College
`)
	cfg.Tables.Work = writeFile("work.yaml", `
- sector: ITC
  id: work-1
  employer: TELUS
- sector: ITC
  id: work-2
  employer: Shopify
`)
	cfg.Prompts.Treatment = writeFile("treatment.md",
		"Rephrase {JSON_resume_object} applying {Treatment_object} as {treatment_type} {style_guide}")
	cfg.Prompts.ControlRefiner = writeFile("refiner.md",
		"Remove North American elements from {JSON_resume_object}")
	cfg.Prompts.CompanyResearch = writeFile("research.md",
		"Propose similar companies for {company_names}")
	return cfg
}

const treatedResumeJSON = `{"resume_data": {"basics": {"summary": "Seasoned engineer."}, "work_experience": [{"company": "Acme Corp", "highlights": ["Shipped a platform."]}]}}`

func scriptedResponses() []llm.Response {
	return []llm.Response{
		// control refiner
		{Text: `{"resume_data": {"basics": {"summary": "Seasoned engineer."}, "work_experience": [{"company": "Acme Corp", "location": "Austin", "highlights": ["Shipped a platform."]}]}}`},
		// company research
		{Text: `[{"Original_company": "Acme Corp", "Similar companies": [{"Type_I": "Maple Co"}, {"Type_II": "Birch Inc"}, {"Type_III": "Cedar Ltd"}]}]`},
		// three treated generations
		{Text: treatedResumeJSON},
		{Text: treatedResumeJSON},
		{Text: treatedResumeJSON},
	}
}

func newTreatmentTask(t *testing.T, client *scriptedClient, embedder llm.Embedder, st store.Store) Task {
	t.Helper()
	return Task{
		Client:         client,
		Embedder:       embedder,
		Store:          st,
		Logger:         nil,
		Rand:           rand.New(rand.NewSource(7)),
		Config:         writeTreatmentFixtures(t),
		Model:          "gemini-2.5-flash",
		EmbeddingModel: "gemini-embedding-001",
		Temperature:    0.6,
		MaxRetries:     2,
		Sector:         "ITC",
	}
}

func seedSource(t *testing.T, st *memoryStore) {
	t.Helper()
	err := st.Upsert(context.Background(), "Standardized_resume_data", "ITC-01.pdf", map[string]any{
		store.KeyField:    "ITC-01.pdf",
		"industry_prefix": "ITC",
		"file_size_bytes": int64(2048),
		"file_hash":       "abc123",
		"resume_data": map[string]any{
			"basics": map[string]any{"summary": "Seasoned engineer."},
			"work_experience": []any{
				map[string]any{"company": "Acme Corp", "location": "Austin", "highlights": []any{"Shipped a platform."}},
			},
		},
	})
	if err != nil {
		t.Fatalf("seed source: %v", err)
	}
}

func TestRunSavesFourDocuments(t *testing.T) {
	st := newMemoryStore()
	seedSource(t, st)
	client := &scriptedClient{responses: scriptedResponses()}
	task := newTreatmentTask(t, client, constantEmbedder{vector: []float64{1, 2, 3}}, st)

	report, err := task.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Treated() != 1 {
		t.Fatalf("expected 1 treated file, got %+v", report)
	}
	if report.Files[0].Documents != 4 {
		t.Fatalf("expected 4 saved documents, got %d", report.Files[0].Documents)
	}

	for _, suffix := range []string{TypeControl, TypeI, TypeII, TypeIII} {
		document, findErr := st.FindByKey(context.Background(), "Treated_resumes", "ITC-01_"+suffix)
		if findErr != nil {
			t.Fatalf("document ITC-01_%s missing: %v", suffix, findErr)
		}
		if document["original_file_id"] != "ITC-01.pdf" {
			t.Fatalf("document must carry the source file id, got %v", document["original_file_id"])
		}
	}

	typeI, _ := st.FindByKey(context.Background(), "Treated_resumes", "ITC-01_"+TypeI)
	jobs := typeI["resume_data"].(map[string]any)["work_experience"].([]any)
	if jobs[0].(map[string]any)["company"] != "Maple Co" {
		t.Fatalf("Type_I companies must be replaced, got %v", jobs[0])
	}

	control, _ := st.FindByKey(context.Background(), "Treated_resumes", "ITC-01_"+TypeControl)
	controlJobs := control["resume_data"].(map[string]any)["work_experience"].([]any)
	if controlJobs[0].(map[string]any)["company"] != "Acme Corp" {
		t.Fatalf("control companies must stay original, got %v", controlJobs[0])
	}
	validation := control["validation"].(map[string]any)
	if validation["passed_threshold"] != "N/A" {
		t.Fatalf("control carries no similarity validation, got %v", validation)
	}
}

func TestRunSimilarityGateSuppressesWholeFile(t *testing.T) {
	st := newMemoryStore()
	seedSource(t, st)
	client := &scriptedClient{responses: scriptedResponses()}
	// Zero vectors score 0, below any threshold.
	task := newTreatmentTask(t, client, constantEmbedder{vector: []float64{0, 0, 0}}, st)

	report, err := task.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Treated() != 0 {
		t.Fatalf("expected no treated files, got %+v", report)
	}
	if report.Files[0].Status != StatusFailed {
		t.Fatalf("expected failed status, got %+v", report.Files[0])
	}

	keys, _ := st.ListKeys(context.Background(), "Treated_resumes")
	if len(keys) != 0 {
		t.Fatalf("a failed file must save nothing, found %v", keys)
	}
}

func TestRunExplicitFileListFiltersUnknownIDs(t *testing.T) {
	st := newMemoryStore()
	seedSource(t, st)
	client := &scriptedClient{responses: scriptedResponses()}
	task := newTreatmentTask(t, client, constantEmbedder{vector: []float64{1, 2, 3}}, st)
	task.Files = []string{"ITC-01.pdf", "ITC-99.pdf"}

	report, err := task.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Files) != 1 || report.Files[0].FileID != "ITC-01.pdf" {
		t.Fatalf("unknown ids must be filtered, got %+v", report.Files)
	}
}
