package resumestudy

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/config"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/convert"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/fsops"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/store"
	extractiontask "github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/tasks/extraction"
	treatmenttask "github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/tasks/treatment"
)

func runExtractionWorkflow(command *cobra.Command, logger *zap.Logger, options runExtractionOptions) error {
	rootConfiguration, configErr := loadRootConfiguration(options.configPath)
	if configErr != nil {
		return configErr
	}

	workflow, workflowErr := findEnabledWorkflow(rootConfiguration, extractionWorkflowName, extractionWorkflowType)
	if workflowErr != nil {
		return workflowErr
	}
	extractionConfiguration, mapErr := config.MapExtraction(workflow)
	if mapErr != nil {
		return mapErr
	}
	if options.input != "" {
		extractionConfiguration.Directories.Input = options.input
	}
	if options.concurrency > 0 {
		extractionConfiguration.Concurrency = options.concurrency
	}

	modelConfiguration, modelErr := resolveModel(rootConfiguration, workflow, options.modelOverride)
	if modelErr != nil {
		return modelErr
	}

	client, clientErr := buildClient(rootConfiguration)
	if clientErr != nil {
		return clientErr
	}

	persistence, storeErr := buildStore(command, rootConfiguration, logger)
	if storeErr != nil {
		return storeErr
	}
	defer func() {
		if closeErr := persistence.Close(command.Context()); closeErr != nil {
			logger.Warn("closing store failed", zap.Error(closeErr))
		}
	}()

	defaults := rootConfiguration.Common.Defaults
	maxRetries := defaults.MaxRetries
	if options.retries > 0 {
		maxRetries = options.retries
	}
	maxReruns := defaults.MaxReruns
	if options.reruns >= 0 {
		maxReruns = options.reruns
	}
	scoreThreshold := defaults.ScoreThreshold
	if options.threshold > 0 {
		scoreThreshold = options.threshold
	}

	task := extractiontask.Task{
		Client:         client,
		Store:          persistence,
		Converter:      convert.LibreOffice{Logger: logger},
		FS:             fsops.NewOps(fsops.NewOS()),
		Logger:         logger,
		Config:         extractionConfiguration,
		Model:          modelConfiguration.ModelID,
		MaxRetries:     maxRetries,
		MaxReruns:      maxReruns,
		ScoreThreshold: scoreThreshold,
	}

	report, runErr := task.Run(command.Context())
	if runErr != nil {
		return runErr
	}
	return printExtractionReport(command, report)
}

func runTreatmentWorkflow(command *cobra.Command, logger *zap.Logger, options runTreatmentOptions) error {
	rootConfiguration, configErr := loadRootConfiguration(options.configPath)
	if configErr != nil {
		return configErr
	}

	workflow, workflowErr := findEnabledWorkflow(rootConfiguration, treatmentWorkflowName, treatmentWorkflowType)
	if workflowErr != nil {
		return workflowErr
	}
	treatmentConfiguration, mapErr := config.MapTreatment(workflow)
	if mapErr != nil {
		return mapErr
	}

	modelConfiguration, modelErr := resolveModel(rootConfiguration, workflow, options.modelOverride)
	if modelErr != nil {
		return modelErr
	}
	embeddingModel, embeddingErr := resolveEmbeddingModel(rootConfiguration, treatmentConfiguration)
	if embeddingErr != nil {
		return embeddingErr
	}

	client, clientErr := buildClient(rootConfiguration)
	if clientErr != nil {
		return clientErr
	}

	persistence, storeErr := buildStore(command, rootConfiguration, logger)
	if storeErr != nil {
		return storeErr
	}
	defer func() {
		if closeErr := persistence.Close(command.Context()); closeErr != nil {
			logger.Warn("closing store failed", zap.Error(closeErr))
		}
	}()

	task := treatmenttask.Task{
		Client:         client,
		Embedder:       client,
		Store:          persistence,
		Logger:         logger,
		Config:         treatmentConfiguration,
		Model:          modelConfiguration.ModelID,
		EmbeddingModel: embeddingModel.ModelID,
		Temperature:    modelConfiguration.DefaultTemperature,
		MaxRetries:     rootConfiguration.Common.Defaults.MaxRetries,
		Sector:         strings.ToUpper(strings.TrimSpace(options.sector)),
		Files:          options.files,
	}

	report, runErr := task.Run(command.Context())
	if runErr != nil {
		return runErr
	}
	return printTreatmentReport(command, report)
}

func findEnabledWorkflow(rootConfiguration config.Root, name string, workflowType string) (config.Workflow, error) {
	workflow, found := rootConfiguration.FindWorkflow(name)
	if !found || !workflow.Enabled {
		return config.Workflow{}, fmt.Errorf("unknown or disabled workflow %q", name)
	}
	if workflow.Type != workflowType {
		return config.Workflow{}, fmt.Errorf("workflow %q has type %q, want %q", name, workflow.Type, workflowType)
	}
	return workflow, nil
}

func resolveModel(rootConfiguration config.Root, workflow config.Workflow, override string) (config.Model, error) {
	name := strings.TrimSpace(override)
	if name == "" {
		name = strings.TrimSpace(workflow.Model)
	}
	if name == "" {
		modelConfiguration, _ := rootConfiguration.DefaultModel()
		return modelConfiguration, nil
	}
	modelConfiguration, found := rootConfiguration.FindModel(name)
	if !found {
		return config.Model{}, fmt.Errorf("model %q not found in models[]", name)
	}
	return modelConfiguration, nil
}

func resolveEmbeddingModel(rootConfiguration config.Root, treatmentConfiguration config.TreatmentYAML) (config.Model, error) {
	if name := strings.TrimSpace(treatmentConfiguration.Similarity.Model); name != "" {
		modelConfiguration, found := rootConfiguration.FindModel(name)
		if !found {
			return config.Model{}, fmt.Errorf("embedding model %q not found in models[]", name)
		}
		return modelConfiguration, nil
	}
	modelConfiguration, found := rootConfiguration.EmbeddingModel()
	if !found {
		return config.Model{}, fmt.Errorf("no embedding model configured (set models[].embedding_model: true)")
	}
	return modelConfiguration, nil
}

func buildClient(rootConfiguration config.Root) (llm.GeminiClient, error) {
	resolver := config.NewEnvironmentResolver()
	apiKey, keyErr := resolver.APIKey(rootConfiguration)
	if keyErr != nil {
		return llm.GeminiClient{}, keyErr
	}
	timeout := time.Duration(rootConfiguration.Common.Defaults.TimeoutSeconds) * time.Second
	return llm.GeminiClient{
		BaseURL:    strings.TrimSpace(rootConfiguration.Common.API.Endpoint),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

func buildStore(command *cobra.Command, rootConfiguration config.Root, logger *zap.Logger) (store.Store, error) {
	resolver := config.NewEnvironmentResolver()
	mongoURI, uriErr := resolver.MongoURI(rootConfiguration)
	if uriErr != nil {
		return nil, uriErr
	}
	return store.NewMongoStore(command.Context(), mongoURI, rootConfiguration.Common.Mongo.Database, logger)
}

func printExtractionReport(command *cobra.Command, report extractiontask.Report) error {
	writer := command.OutOrStdout()
	for _, file := range report.Files {
		score := dashPlaceholder
		if file.Score != nil {
			score = fmt.Sprintf("%.1f", *file.Score)
		}
		line := fmt.Sprintf("%s\t%s\tscore=%s\treruns=%d", file.FileID, file.Status, score, file.RerunCount)
		if file.Reason != "" {
			line += "\t" + file.Reason
		}
		if _, writeErr := fmt.Fprintln(writer, line); writeErr != nil {
			return writeErr
		}
	}
	_, writeErr := fmt.Fprintf(writer, "processed %d of %d files\n", report.Processed(), len(report.Files))
	return writeErr
}

func printTreatmentReport(command *cobra.Command, report treatmenttask.Report) error {
	writer := command.OutOrStdout()
	for _, file := range report.Files {
		line := fmt.Sprintf("%s\t%s\tdocuments=%d", file.FileID, file.Status, file.Documents)
		if file.Reason != "" {
			line += "\t" + file.Reason
		}
		if _, writeErr := fmt.Fprintln(writer, line); writeErr != nil {
			return writeErr
		}
	}
	_, writeErr := fmt.Fprintf(writer, "treated %d of %d files\n", report.Treated(), len(report.Files))
	return writeErr
}
