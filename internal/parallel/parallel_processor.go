// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"time"

	"rollcall/internal/extractor"
	"rollcall/internal/observability"
	"rollcall/internal/roster"
)

// MaxWorkers caps the default worker count.
const MaxWorkers = 8

// ParallelProcessor runs OCR and extraction over a batch of files.
type ParallelProcessor struct {
	workers    int
	recognizer Recognizer
	extractor  *extractor.Extractor
	sourceName string
	observer   *observability.StandardObserver
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	FailedFiles    int           `json:"failed_files"`
	TotalStudents  int           `json:"total_students"`
	TotalDuration  time.Duration `json:"total_duration_ms"`
	WorkerCount    int           `json:"worker_count"`
	AvgFileTime    time.Duration `json:"avg_file_time_ms"`
}

// NewParallelProcessor creates a processor. workers <= 0 sizes the pool per
// batch with OptimalWorkerCount.
func NewParallelProcessor(workers int, recognizer Recognizer, ext *extractor.Extractor, sourceName string, observer *observability.StandardObserver) *ParallelProcessor {
	return &ParallelProcessor{
		workers:    workers,
		recognizer: recognizer,
		extractor:  ext,
		sourceName: sourceName,
		observer:   observer,
	}
}

// ProgressCallback is called when a file is completed
type ProgressCallback func(completed, total int, currentFile string)

// ProcessFiles processes files in parallel. Results are returned in the
// order of filePaths; a failed file carries its error in FileResult.Error
// and does not stop the batch. The returned error is only set when ctx ends
// before every file was processed.
func (pp *ParallelProcessor) ProcessFiles(ctx context.Context, filePaths []string, progressCallback ProgressCallback) ([]roster.FileResult, *ProcessingStats, error) {
	start := time.Now()
	finishTiming := pp.observer.StartTiming("parallel_processor", "process_files", "batch")

	workers := pp.workers
	if workers <= 0 {
		workers = batchWorkers(DefaultResourceLimits(), filePaths)
	}

	pool := NewWorkerPool(ctx, workers, pp.recognizer, pp.extractor, pp.sourceName, pp.observer)
	pool.Start()

	jobCount := len(filePaths)
	go func() {
		defer close(pool.jobs)
		for i, filePath := range filePaths {
			if !pool.Submit(&Job{JobID: fmt.Sprintf("job_%d", i), Index: i, FilePath: filePath}) {
				return
			}
		}
	}()

	results := make([]roster.FileResult, jobCount)
	stats := &ProcessingStats{TotalFiles: jobCount, WorkerCount: workers}
	var fileTime time.Duration

	completed := 0
	for completed < jobCount {
		var result *Result
		select {
		case result = <-pool.Results():
		case <-ctx.Done():
		}
		if result == nil || ctx.Err() != nil {
			break
		}

		fr := roster.FileResult{SourceFile: result.FilePath, Students: result.Students, Pages: result.Pages}
		if result.Error != nil {
			fr.Error = result.Error.Error()
			stats.FailedFiles++
			pp.observer.LogOperation(observability.StandardObservabilityData{
				Component: "parallel_processor",
				Operation: "file_processing",
				FilePath:  result.FilePath,
				Success:   false,
				Error:     result.Error.Error(),
			})
		} else {
			stats.ProcessedFiles++
			stats.TotalStudents += len(result.Students)
		}
		results[result.Index] = fr
		fileTime += result.Duration

		completed++
		if progressCallback != nil {
			progressCallback(completed, jobCount, result.FilePath)
		}
	}

	// unblock workers still holding results, then wait for them
	pool.cancel()
	go func() {
		for range pool.Results() {
		}
	}()
	pool.Stop()

	stats.TotalDuration = time.Since(start)
	stats.AvgFileTime = fileTime / time.Duration(max(completed, 1))

	finishTiming(completed == jobCount, map[string]interface{}{
		"total_files":     jobCount,
		"processed_files": stats.ProcessedFiles,
		"failed_files":    stats.FailedFiles,
		"total_students":  stats.TotalStudents,
		"worker_count":    workers,
	})

	if completed < jobCount {
		return results[:0], stats, fmt.Errorf("batch interrupted after %d of %d files: %w", completed, jobCount, ctx.Err())
	}
	return results, stats, nil
}
