package main

import (
	"os"

	resumestudy "github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/cmd/resume-study"
	"go.uber.org/zap"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	executionErr := resumestudy.Execute(logger)
	if executionErr != nil {
		logger.Error("command execution failed", zap.Error(executionErr))
		_ = logger.Sync()
		os.Exit(1)
	}

	syncErr := logger.Sync()
	if syncErr != nil {
		os.Exit(1)
	}
}
