// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"rollcall/internal/extractor"
	"rollcall/internal/observability"
	"rollcall/internal/ocr"
	"rollcall/internal/resilience"
	"rollcall/internal/roster"
)

// DefaultJobTimeout bounds the OCR and extraction of a single file.
const DefaultJobTimeout = 5 * time.Minute

// Recognizer turns a file into pages of tokens. *ocr.Registry implements it.
type Recognizer interface {
	Recognize(ctx context.Context, sourceName, path string) ([]ocr.Document, error)
}

// WorkerPool manages parallel file processing with enhanced error handling
type WorkerPool struct {
	workers      int
	jobs         chan *Job
	results      chan *Result
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	observer     *observability.StandardObserver
	retryManager *resilience.RetryManager

	recognizer Recognizer
	extractor  *extractor.Extractor
	sourceName string
	jobTimeout time.Duration
}

// Job represents a file processing task
type Job struct {
	JobID    string
	Index    int
	FilePath string
}

// Result represents processing results
type Result struct {
	JobID    string
	Index    int
	FilePath string
	Students []roster.Student
	Pages    int
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx stops workers
// between jobs and aborts running OCR calls.
func NewWorkerPool(ctx context.Context, workers int, recognizer Recognizer, ext *extractor.Extractor, sourceName string, observer *observability.StandardObserver) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	workers = max(workers, 1)

	return &WorkerPool{
		workers:      workers,
		jobs:         make(chan *Job, workers*2),
		results:      make(chan *Result, workers*2),
		ctx:          ctx,
		cancel:       cancel,
		observer:     observer,
		retryManager: resilience.NewRetryManager(),
		recognizer:   recognizer,
		extractor:    ext,
		sourceName:   sourceName,
		jobTimeout:   DefaultJobTimeout,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for the workers to drain and closes the results channel.
// The jobs channel must be closed first.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue. It reports false once the pool's context
// is done.
func (wp *WorkerPool) Submit(job *Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob recognizes one file and extracts its students. A file whose
// pages hold no text is not an error; it simply has no students.
func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()
	finishTiming := wp.observer.StartTiming("worker_pool", "process_job", job.FilePath)

	result := &Result{JobID: job.JobID, Index: job.Index, FilePath: job.FilePath}

	jobCtx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	var docs []ocr.Document
	err := wp.retryManager.Retry(jobCtx, "file", func(ctx context.Context) error {
		var recErr error
		docs, recErr = wp.recognizer.Recognize(ctx, wp.sourceName, job.FilePath)
		return recErr
	})

	switch {
	case errors.Is(err, ocr.ErrNoTokens):
		err = nil
	case err == nil:
		result.Pages = len(docs)
		result.Students, err = wp.extract(docs, job.FilePath)
	}
	result.Error = err
	result.Duration = time.Since(start)

	finishTiming(err == nil, map[string]interface{}{
		"worker_id":    workerID,
		"record_count": len(result.Students),
		"pages":        result.Pages,
	})
	return result
}

func (wp *WorkerPool) extract(docs []ocr.Document, path string) ([]roster.Student, error) {
	var debug *observability.DebugObserver
	if wp.observer != nil {
		debug = wp.observer.DebugObserver
	}
	if debug == nil {
		return wp.extractor.ExtractDocuments(docs, filepath.Base(path))
	}

	finish := debug.StartStep("extractor", "extract", path)
	for _, d := range docs {
		debug.LogDetail("extractor", fmt.Sprintf("page %d: %d tokens", d.Page, len(d.Tokens)))
	}
	students, err := wp.extractor.ExtractDocuments(docs, filepath.Base(path))
	details := fmt.Sprintf("%d students", len(students))
	if err != nil {
		details = err.Error()
	}
	finish(err == nil, details)
	return students, err
}
