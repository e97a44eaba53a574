// Package extraction drives the phase-1 batch: every resume in the input
// directory goes through convert → upload → pipeline → persist → archive.
// Failures are file-scoped; one bad resume never aborts the batch.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/config"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/convert"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/fsops"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/llm"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/pipeline"
	"github.com/prayag-purohit/LLM-Resume-EDA-and-Parsing/internal/store"
)

const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"

	docxExtension = ".docx"
	pdfExtension  = ".pdf"
)

// Task wires the collaborators for one extraction batch. All fields are
// required except Probe, which defaults to the pdf readability check, and
// Now, which defaults to the wall clock.
type Task struct {
	Client    llm.Client
	Store     store.Store
	Converter convert.Converter
	FS        fsops.Ops
	Probe     func(path string) error
	Logger    *zap.Logger
	Now       func() time.Time

	Config         config.ExtractionYAML
	Model          string
	MaxRetries     int
	MaxReruns      int
	ScoreThreshold float64
}

// FileReport summarizes one file's trip through the batch.
type FileReport struct {
	FileID     string
	Status     string
	Reason     string
	Score      *float64
	RerunCount int
}

// Report is the batch outcome: one entry per inventoried file.
type Report struct {
	Files []FileReport
}

// Processed counts files that reached a persisted terminal state.
func (r Report) Processed() int {
	count := 0
	for _, file := range r.Files {
		if file.Status == StatusProcessed {
			count++
		}
	}
	return count
}

// Run processes every file in the configured input directory. The returned
// error covers batch-level faults only (bad configuration, unreadable input
// directory); per-file failures land in the report.
func (t Task) Run(ctx context.Context) (Report, error) {
	logger := t.logger()

	stages, stageErr := t.stageConfigs()
	if stageErr != nil {
		return Report{}, stageErr
	}
	pipe, buildErr := pipeline.Build(t.Client, stages, t.MaxRetries, logger)
	if buildErr != nil {
		return Report{}, fmt.Errorf("build pipeline: %w", buildErr)
	}
	controller := pipeline.Controller{
		Pipeline:       pipe,
		MaxReruns:      t.MaxReruns,
		ScoreThreshold: t.ScoreThreshold,
		Logger:         logger,
	}

	files, inventoryErr := t.FS.Inventory(t.Config.Directories.Input)
	if inventoryErr != nil {
		return Report{}, fmt.Errorf("inventory %s: %w", t.Config.Directories.Input, inventoryErr)
	}
	logger.Info("starting extraction batch",
		zap.Int("files", len(files)),
		zap.String("input", t.Config.Directories.Input),
		zap.Int("concurrency", t.Config.Concurrency))

	var (
		group, groupCtx = errgroup.WithContext(ctx)
		mu              sync.Mutex
		report          Report
	)
	group.SetLimit(t.Config.Concurrency)
	for _, file := range files {
		file := file
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			fileReport := t.processFile(groupCtx, controller, file)
			mu.Lock()
			report.Files = append(report.Files, fileReport)
			mu.Unlock()
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return report, waitErr
	}
	logger.Info("extraction batch finished",
		zap.Int("processed", report.Processed()),
		zap.Int("total", len(report.Files)))
	return report, nil
}

// processFile runs one file to its terminal state. Every failure path
// returns a report entry instead of an error.
func (t Task) processFile(ctx context.Context, controller pipeline.Controller, file fsops.FileInfo) FileReport {
	logger := t.logger().With(zap.String("file", file.BaseName+file.Extension))

	sourcePath := file.AbsolutePath
	if file.Extension == docxExtension {
		converted, convertErr := t.Converter.ToPDF(ctx, sourcePath, t.Config.Directories.Input)
		if convertErr != nil {
			logger.Error("conversion failed, skipping file", zap.Error(convertErr))
			return FileReport{FileID: file.BaseName + file.Extension, Status: StatusFailed, Reason: "conversion: " + convertErr.Error()}
		}
		archiveDirectory := t.FS.FS.Join(t.Config.Directories.Input, fsops.PreConversionDirectoryName)
		if _, moveErr := t.FS.SafeMove(sourcePath, archiveDirectory); moveErr != nil {
			logger.Error("archiving original docx failed, skipping file", zap.Error(moveErr))
			return FileReport{FileID: file.BaseName + file.Extension, Status: StatusFailed, Reason: "archive docx: " + moveErr.Error()}
		}
		sourcePath = converted
	}

	fileID := t.FS.FS.Base(sourcePath)
	if probeErr := t.probe(sourcePath); probeErr != nil {
		logger.Error("pdf probe failed, skipping file", zap.Error(probeErr))
		return FileReport{FileID: fileID, Status: StatusFailed, Reason: "probe: " + probeErr.Error()}
	}

	meta, metaErr := t.fileMeta(fileID, sourcePath)
	if metaErr != nil {
		logger.Error("reading file metadata failed, skipping file", zap.Error(metaErr))
		return FileReport{FileID: fileID, Status: StatusFailed, Reason: "metadata: " + metaErr.Error()}
	}

	document, uploadErr := t.Client.Upload(ctx, sourcePath)
	if uploadErr != nil {
		logger.Error("upload failed, skipping file", zap.Error(uploadErr))
		return FileReport{FileID: fileID, Status: StatusFailed, Reason: "upload: " + uploadErr.Error()}
	}
	defer func() {
		if releaseErr := t.Client.Release(ctx, document); releaseErr != nil {
			logger.Warn("releasing uploaded document failed", zap.Error(releaseErr))
		}
	}()

	record := controller.Run(ctx, &document)
	runDocument := store.BuildRunDocument(meta, record, t.Model, t.now())

	persisted := true
	if upsertErr := t.Store.Upsert(ctx, t.Config.Storage.Collection, meta.FileID, runDocument); upsertErr != nil {
		persisted = false
		logger.Error("persisting run failed, dumping payload", zap.Error(upsertErr))
		t.dumpPayload(meta.FileID, runDocument, logger)
	}

	// The file is archived regardless of storage failure; the dump keeps
	// the payload recoverable.
	if _, moveErr := t.FS.SafeMove(sourcePath, t.Config.Directories.Processed); moveErr != nil {
		logger.Error("archiving processed file failed", zap.Error(moveErr))
		return FileReport{FileID: meta.FileID, Status: StatusFailed, Reason: "archive: " + moveErr.Error()}
	}

	final := record.Final()
	fileReport := FileReport{
		FileID:     meta.FileID,
		Status:     StatusProcessed,
		Score:      final.QualityScore,
		RerunCount: record.RerunCount,
	}
	if !persisted {
		fileReport.Status = StatusFailed
		fileReport.Reason = "storage failure, payload dumped"
	}
	return fileReport
}

func (t Task) stageConfigs() ([]pipeline.StageConfig, error) {
	if len(t.Config.Stages) == 0 {
		return nil, errors.New("extraction workflow has no stages configured")
	}
	stages := make([]pipeline.StageConfig, 0, len(t.Config.Stages))
	for _, stage := range t.Config.Stages {
		model := stage.Model
		if model == "" {
			model = t.Model
		}
		stages = append(stages, pipeline.StageConfig{
			Name:         stage.Name,
			TemplatePath: stage.Prompt,
			Model:        model,
			Temperature:  stage.Temperature,
			GoogleSearch: stage.GoogleSearch,
		})
	}
	return stages, nil
}

func (t Task) fileMeta(fileID string, path string) (store.FileMeta, error) {
	info, statErr := t.FS.FS.Stat(path)
	if statErr != nil {
		return store.FileMeta{}, statErr
	}
	hash, hashErr := t.FS.HashFile(path)
	if hashErr != nil {
		return store.FileMeta{}, hashErr
	}
	return store.FileMeta{
		FileID:     fileID,
		SourcePath: path,
		SizeBytes:  info.Size(),
		SHA256:     hash,
	}, nil
}

// dumpPayload writes the undeliverable document to the dump directory so a
// storage outage never loses a finished run.
func (t Task) dumpPayload(fileID string, document map[string]any, logger *zap.Logger) {
	encoded, marshalErr := json.MarshalIndent(document, "", "  ")
	if marshalErr != nil {
		logger.Error("encoding dump payload failed", zap.Error(marshalErr))
		return
	}
	if mkdirErr := t.FS.FS.MkdirAll(t.Config.Directories.Dump, 0o755); mkdirErr != nil {
		logger.Error("creating dump directory failed", zap.Error(mkdirErr))
		return
	}
	dumpPath := t.FS.FS.Join(t.Config.Directories.Dump, fileID+".json")
	if writeErr := t.FS.FS.WriteFile(dumpPath, encoded, 0o644); writeErr != nil {
		logger.Error("writing dump payload failed", zap.Error(writeErr))
		return
	}
	logger.Info("dumped payload", zap.String("path", dumpPath))
}

func (t Task) probe(path string) error {
	if t.Probe != nil {
		return t.Probe(path)
	}
	return convert.ProbePDF(path)
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
