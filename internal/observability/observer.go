// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StandardObserver records timing and outcome of pipeline operations.
type StandardObserver struct {
	level         ObservabilityLevel
	log           *logrus.Logger
	DebugObserver *DebugObserver // set when running in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates an observer that writes JSON lines to writer.
// Metrics level logs failures only; debug level logs every operation.
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	log := logrus.New()
	log.SetOutput(writer)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	switch level {
	case ObservabilityDebug:
		log.SetLevel(logrus.DebugLevel)
	case ObservabilityMetrics:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.PanicLevel)
	}

	return &StandardObserver{
		level: level,
		log:   log,
	}
}

// Logger exposes the underlying logger for ad-hoc messages.
func (o *StandardObserver) Logger() *logrus.Logger {
	return o.log
}

// Level returns the configured level.
func (o *StandardObserver) Level() ObservabilityLevel {
	return o.level
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	if data.RequestID == "" {
		data.RequestID = "req-" + uuid.NewString()
	}

	fields := logrus.Fields{
		"component":  data.Component,
		"operation":  data.Operation,
		"request_id": data.RequestID,
		"success":    data.Success,
	}
	if data.FilePath != "" {
		fields["file_path"] = data.FilePath
	}
	if data.DurationMs > 0 {
		fields["duration_ms"] = data.DurationMs
	}
	if data.RecordCount > 0 {
		fields["record_count"] = data.RecordCount
	}
	if data.TokenCount > 0 {
		fields["token_count"] = data.TokenCount
	}
	for k, v := range data.Metadata {
		fields[k] = v
	}

	entry := o.log.WithFields(fields)
	if !data.Success {
		if data.Error != "" {
			entry = entry.WithField("error", data.Error)
		}
		entry.Warn(data.Operation)
		return
	}
	entry.Debug(data.Operation)
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component   string
	Operation   string
	RequestID   string
	FilePath    string
	DurationMs  int64
	Success     bool
	Error       string
	TokenCount  int
	RecordCount int
	Metadata    map[string]interface{}
}
