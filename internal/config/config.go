package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	emptyModelsErrorMessage                  = "config.models is empty"
	missingDefaultModelErrorMessage          = "no default model found (set models[].default: true)"
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationUnmarshalErrorFormat    = "unmarshal root configuration %s: %w"
	mapExtractionMarshalErrorFormat          = "marshal extraction workflow: %w"
	mapExtractionUnmarshalErrorFormat        = "map extraction workflow: %w"
	mapTreatmentMarshalErrorFormat           = "marshal treatment workflow: %w"
	mapTreatmentUnmarshalErrorFormat         = "map treatment workflow: %w"
)

// Defaults applied when the configuration leaves a knob unset.
const (
	DefaultMaxRetries     = 2
	DefaultMaxReruns      = 2
	DefaultScoreThreshold = 7
	DefaultTimeoutSeconds = 300
)

type Root struct {
	Common    Common     `yaml:"common"`
	Models    []Model    `yaml:"models"`
	Workflows []Workflow `yaml:"workflows"`
}

type Common struct {
	API struct {
		Endpoint  string `yaml:"endpoint"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"api"`
	Mongo struct {
		URIEnv   string `yaml:"uri_env"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Defaults struct {
		MaxRetries     int     `yaml:"max_retries"`
		MaxReruns      int     `yaml:"max_reruns"`
		ScoreThreshold float64 `yaml:"score_threshold"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"defaults"`
}

type Model struct {
	Name               string  `yaml:"name"`
	ModelID            string  `yaml:"model_id"`
	Default            bool    `yaml:"default"`
	DefaultTemperature float64 `yaml:"default_temperature"`
	EmbeddingModel     bool    `yaml:"embedding_model"`
}

// Workflow is one configured pipeline. The typed portion identifies and
// routes it; Body holds the workflow-specific configuration, decoded by the
// Map* helpers.
type Workflow struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	Type    string `yaml:"type"`

	Body map[string]any `yaml:",inline"`
}

// LoadRoot parses the provided configuration source and validates required fields.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	var rootConfiguration Root
	if err := yaml.Unmarshal(source.Content, &rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationUnmarshalErrorFormat, source.Reference, err)
	}

	if len(rootConfiguration.Models) == 0 {
		return Root{}, errors.New(emptyModelsErrorMessage)
	}
	if _, ok := rootConfiguration.DefaultModel(); !ok {
		return Root{}, errors.New(missingDefaultModelErrorMessage)
	}
	rootConfiguration.applyDefaults()
	return rootConfiguration, nil
}

func (root *Root) applyDefaults() {
	defaults := &root.Common.Defaults
	if defaults.MaxRetries <= 0 {
		defaults.MaxRetries = DefaultMaxRetries
	}
	if defaults.MaxReruns < 0 {
		defaults.MaxReruns = DefaultMaxReruns
	}
	if defaults.ScoreThreshold <= 0 {
		defaults.ScoreThreshold = DefaultScoreThreshold
	}
	if defaults.TimeoutSeconds <= 0 {
		defaults.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (root Root) DefaultModel() (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Default {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

func (root Root) FindModel(name string) (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Name == name {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

func (root Root) FindWorkflow(name string) (Workflow, bool) {
	for _, workflow := range root.Workflows {
		if workflow.Name == name {
			return workflow, true
		}
	}
	return Workflow{}, false
}

// EmbeddingModel returns the model flagged for embeddings, if any.
func (root Root) EmbeddingModel() (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.EmbeddingModel {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

// ExtractionYAML is the body schema of a workflow/extraction workflow.
type ExtractionYAML struct {
	Directories struct {
		Input     string `yaml:"input"`
		Processed string `yaml:"processed"`
		Dump      string `yaml:"dump"`
	} `yaml:"directories"`
	Storage struct {
		Collection string `yaml:"collection"`
	} `yaml:"storage"`
	Concurrency int `yaml:"concurrency"`
	Stages      []struct {
		Name         string  `yaml:"name"`
		Prompt       string  `yaml:"prompt"`
		Model        string  `yaml:"model"`
		Temperature  float64 `yaml:"temperature"`
		GoogleSearch bool    `yaml:"google_search"`
	} `yaml:"stages"`
}

// MapExtraction converts a workflow body into the extraction task schema.
func MapExtraction(workflow Workflow) (ExtractionYAML, error) {
	var extractionConfiguration ExtractionYAML
	encodedWorkflowBody, marshalError := yaml.Marshal(workflow.Body)
	if marshalError != nil {
		return extractionConfiguration, fmt.Errorf(mapExtractionMarshalErrorFormat, marshalError)
	}
	if err := yaml.Unmarshal(encodedWorkflowBody, &extractionConfiguration); err != nil {
		return extractionConfiguration, fmt.Errorf(mapExtractionUnmarshalErrorFormat, err)
	}
	if extractionConfiguration.Concurrency <= 0 {
		extractionConfiguration.Concurrency = 1
	}
	return extractionConfiguration, nil
}

// TreatmentYAML is the body schema of a workflow/treatment workflow.
type TreatmentYAML struct {
	Storage struct {
		SourceCollection string `yaml:"source_collection"`
		TargetCollection string `yaml:"target_collection"`
	} `yaml:"storage"`
	Tables struct {
		Education string `yaml:"education"`
		Work      string `yaml:"work"`
	} `yaml:"tables"`
	Prompts struct {
		Treatment       string `yaml:"treatment"`
		ControlRefiner  string `yaml:"control_refiner"`
		CompanyResearch string `yaml:"company_research"`
	} `yaml:"prompts"`
	Similarity struct {
		Threshold float64 `yaml:"threshold"`
		Model     string  `yaml:"model"`
	} `yaml:"similarity"`
}

// MapTreatment converts a workflow body into the treatment task schema.
func MapTreatment(workflow Workflow) (TreatmentYAML, error) {
	var treatmentConfiguration TreatmentYAML
	encodedWorkflowBody, marshalError := yaml.Marshal(workflow.Body)
	if marshalError != nil {
		return treatmentConfiguration, fmt.Errorf(mapTreatmentMarshalErrorFormat, marshalError)
	}
	if err := yaml.Unmarshal(encodedWorkflowBody, &treatmentConfiguration); err != nil {
		return treatmentConfiguration, fmt.Errorf(mapTreatmentUnmarshalErrorFormat, err)
	}
	if treatmentConfiguration.Similarity.Threshold <= 0 {
		treatmentConfiguration.Similarity.Threshold = 0.60
	}
	return treatmentConfiguration, nil
}
