package resumestudy

const (
	defaultConfigPath = "./config.yaml"

	rootCommandUse   = "resume-study"
	rootCommandShort = "Batch LLM pipelines for the resume correspondence study"

	runCommandUse   = "run"
	runCommandShort = "Run a configured workflow"

	runExtractionCommandUse   = "extraction"
	runExtractionCommandShort = "Extract, analyze and validate resumes from an input directory"

	runTreatmentCommandUse   = "treatment"
	runTreatmentCommandShort = "Generate treated resume versions from standardized source data"

	listCommandUse   = "list"
	listCommandShort = "List workflows from the configuration (enabled by default)"

	statusCommandUse   = "status"
	statusCommandShort = "List processed file ids from storage"

	configFlagName  = "config"
	configFlagUsage = "Path to unified config.yaml"

	allFlagName  = "all"
	allFlagUsage = "Show disabled workflows as well"

	modelFlagName  = "model"
	modelFlagUsage = "Override the workflow's model by name (must exist in models[])"

	inputFlagName  = "input"
	inputFlagUsage = "Override the input directory for this run"

	concurrencyFlagName  = "concurrency"
	concurrencyFlagUsage = "Number of files processed in parallel (0 = use workflow value)"

	retriesFlagName  = "retries"
	retriesFlagUsage = "Max per-stage retries (0 = use defaults)"

	rerunsFlagName  = "reruns"
	rerunsFlagUsage = "Max whole-pipeline re-runs on a low validation score (-1 = use defaults)"

	thresholdFlagName  = "threshold"
	thresholdFlagUsage = "Validation score threshold (0 = use defaults)"

	sectorFlagName  = "sector"
	sectorFlagUsage = "Industry prefix as stored in the source collection (e.g. ITC)"

	filesFlagName  = "files"
	filesFlagUsage = "Optional list of specific file ids to process"

	extractionWorkflowName = "extraction"
	treatmentWorkflowName  = "treatment"

	extractionWorkflowType = "workflow/extraction"
	treatmentWorkflowType  = "workflow/treatment"

	enabledStateLabel  = "enabled"
	disabledStateLabel = "disabled"
	dashPlaceholder    = "-"

	configurationLoaderInitializationErrorFormat = "initialize configuration loader: %w"
	configurationSourceResolutionErrorFormat     = "resolve configuration source: %w"
	rootConfigurationLoadErrorFormat             = "load root configuration %s: %w"
)
