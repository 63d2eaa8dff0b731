// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"os"
	"runtime"
)

// ResourceLimits bounds the worker count chosen for a batch.
type ResourceLimits struct {
	MaxWorkers int
	MinWorkers int
	// LargeFileBytes is the average input size above which the worker count
	// is halved. Large PDFs are rasterized and OCRed page by page in memory.
	LargeFileBytes int64
	// HeapThresholdBytes halves the worker count when the heap already
	// holds this much.
	HeapThresholdBytes uint64
}

// DefaultResourceLimits returns sensible default limits
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxWorkers:         MaxWorkers,
		MinWorkers:         1,
		LargeFileBytes:     20 << 20,
		HeapThresholdBytes: 1 << 30,
	}
}

// OptimalWorkerCount sizes the pool for a batch. It never returns more
// workers than files.
func OptimalWorkerCount(limits ResourceLimits, cpuCores, fileCount int, avgFileSize int64, heapInUse uint64) int {
	workers := min(cpuCores, limits.MaxWorkers)

	if limits.LargeFileBytes > 0 && avgFileSize > limits.LargeFileBytes {
		workers /= 2
	}
	if limits.HeapThresholdBytes > 0 && heapInUse > limits.HeapThresholdBytes {
		workers /= 2
	}

	if fileCount > 0 {
		workers = min(workers, fileCount)
	}
	return max(workers, limits.MinWorkers, 1)
}

// batchWorkers measures the batch and the process and returns the worker
// count for it.
func batchWorkers(limits ResourceLimits, filePaths []string) int {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return OptimalWorkerCount(limits, runtime.NumCPU(), len(filePaths), averageFileSize(filePaths), memStats.HeapInuse)
}

// averageFileSize ignores files that cannot be stat'ed; they fail later
// with a proper error.
func averageFileSize(filePaths []string) int64 {
	var total int64
	n := 0
	for _, p := range filePaths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		total += info.Size()
		n++
	}
	if n == 0 {
		return 0
	}
	return total / int64(n)
}
