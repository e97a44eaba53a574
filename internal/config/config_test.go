package config_test

import (
	"strings"
	"testing"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/config"
)

const sampleRootConfiguration = `
common:
  api:
    endpoint: https://example.test/api
    api_key_env: EXAMPLE_API_KEY
  mongo:
    uri_env: EXAMPLE_MONGO_URI
    database: Resume_study
models:
  - name: flash
    model_id: gemini-2.5-flash
    default: true
    default_temperature: 0.3
  - name: embedding
    model_id: gemini-embedding-001
    embedding_model: true
workflows:
  - name: extraction
    enabled: true
    model: flash
    type: workflow/extraction
    directories:
      input: data/input
      processed: data/processed
      dump: data/failed_payloads
    storage:
      collection: Standardized_resume_data
    stages:
      - name: extraction
        prompt: prompts/prompt_std_resume_data.md
        temperature: 0.2
      - name: analysis
        prompt: prompts/prompt_std_EDA.md
      - name: validation
        prompt: prompts/prompt_std_validation.md
  - name: treatment
    enabled: true
    model: flash
    type: workflow/treatment
    storage:
      source_collection: Standardized_resume_data
      target_collection: Treated_resumes
    tables:
      education: configs/education_treatments.yaml
      work: configs/work_treatments.yaml
    prompts:
      treatment: prompts/prompt_treatment_generation.md
      control_refiner: prompts/prompt_control_refiner.md
      company_research: prompts/prompt_similar_company_generation.md
    similarity:
      model: embedding
`

func loadSampleRoot(t *testing.T) config.Root {
	t.Helper()
	root, err := config.LoadRoot(config.RootConfigurationSource{
		Reference: "test configuration",
		Content:   []byte(sampleRootConfiguration),
	})
	if err != nil {
		t.Fatalf("load root: %v", err)
	}
	return root
}

func TestLoadRootAppliesDefaults(t *testing.T) {
	root := loadSampleRoot(t)
	defaults := root.Common.Defaults
	if defaults.MaxRetries != config.DefaultMaxRetries {
		t.Fatalf("expected default max retries, got %d", defaults.MaxRetries)
	}
	if defaults.ScoreThreshold != config.DefaultScoreThreshold {
		t.Fatalf("expected default score threshold, got %v", defaults.ScoreThreshold)
	}
}

func TestLoadRootRequiresDefaultModel(t *testing.T) {
	withoutDefault := strings.Replace(sampleRootConfiguration, "default: true", "default: false", 1)
	_, err := config.LoadRoot(config.RootConfigurationSource{
		Reference: "test configuration",
		Content:   []byte(withoutDefault),
	})
	if err == nil {
		t.Fatalf("expected missing-default-model error")
	}
}

func TestMapExtraction(t *testing.T) {
	root := loadSampleRoot(t)
	workflow, ok := root.FindWorkflow("extraction")
	if !ok {
		t.Fatalf("extraction workflow missing")
	}

	extraction, err := config.MapExtraction(workflow)
	if err != nil {
		t.Fatalf("map extraction: %v", err)
	}
	if extraction.Directories.Input != "data/input" {
		t.Fatalf("unexpected input directory: %q", extraction.Directories.Input)
	}
	if extraction.Storage.Collection != "Standardized_resume_data" {
		t.Fatalf("unexpected collection: %q", extraction.Storage.Collection)
	}
	if extraction.Concurrency != 1 {
		t.Fatalf("unset concurrency must default to 1, got %d", extraction.Concurrency)
	}
	if len(extraction.Stages) != 3 || extraction.Stages[2].Name != "validation" {
		t.Fatalf("unexpected stages: %+v", extraction.Stages)
	}
}

func TestMapTreatment(t *testing.T) {
	root := loadSampleRoot(t)
	workflow, ok := root.FindWorkflow("treatment")
	if !ok {
		t.Fatalf("treatment workflow missing")
	}

	treatment, err := config.MapTreatment(workflow)
	if err != nil {
		t.Fatalf("map treatment: %v", err)
	}
	if treatment.Storage.TargetCollection != "Treated_resumes" {
		t.Fatalf("unexpected target collection: %q", treatment.Storage.TargetCollection)
	}
	if treatment.Similarity.Threshold != 0.60 {
		t.Fatalf("unset similarity threshold must default to 0.60, got %v", treatment.Similarity.Threshold)
	}
	if treatment.Tables.Education == "" || treatment.Tables.Work == "" {
		t.Fatalf("treatment tables missing: %+v", treatment.Tables)
	}
}

func TestEmbeddingModelLookup(t *testing.T) {
	root := loadSampleRoot(t)
	model, ok := root.EmbeddingModel()
	if !ok || model.ModelID != "gemini-embedding-001" {
		t.Fatalf("unexpected embedding model: %+v ok=%v", model, ok)
	}
}

func TestEnvironmentResolver(t *testing.T) {
	t.Setenv("EXAMPLE_API_KEY", "key-value")
	t.Setenv("EXAMPLE_MONGO_URI", "mongodb://localhost:27017")

	root := loadSampleRoot(t)
	resolver := config.NewEnvironmentResolver()

	apiKey, err := resolver.APIKey(root)
	if err != nil || apiKey != "key-value" {
		t.Fatalf("api key resolution failed: %q %v", apiKey, err)
	}
	mongoURI, err := resolver.MongoURI(root)
	if err != nil || mongoURI != "mongodb://localhost:27017" {
		t.Fatalf("mongo uri resolution failed: %q %v", mongoURI, err)
	}

	root.Common.API.APIKeyEnv = "EXAMPLE_UNSET_VARIABLE"
	if _, err := resolver.APIKey(root); err == nil {
		t.Fatalf("expected error for unset environment variable")
	}
}
