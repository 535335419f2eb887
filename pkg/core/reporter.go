/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for run telemetry. Reporters are
notified of every generated sample and of every sample that reached new coverage.
*/

package core

import (
	"github.com/morellic/glade-full/pkg/monitoring"
	"github.com/sirupsen/logrus"
)

// Reporter receives run events
type Reporter interface {
	// OnSample is called for every generated sample
	OnSample(tc *TestCase)
	// OnNewCoverage is called when a sample covered a new event
	OnNewCoverage(tc *TestCase)
}

// LoggerReporter logs run events
type LoggerReporter struct {
	logger logrus.FieldLogger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger logrus.FieldLogger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnSample logs the sample at trace level
func (r *LoggerReporter) OnSample(tc *TestCase) {
	r.logger.WithFields(logrus.Fields{
		"iter":   tc.Iteration,
		"source": tc.Source,
		"length": len(tc.Data),
	}).Trace("Sample generated")
}

// OnNewCoverage logs the discovery
func (r *LoggerReporter) OnNewCoverage(tc *TestCase) {
	r.logger.WithFields(logrus.Fields{
		"id":      tc.ID,
		"iter":    tc.Iteration,
		"covered": tc.Covered,
	}).Info("Sample added to corpus")
}

// MetricsReporter counts samples per sampler
type MetricsReporter struct {
	metrics *monitoring.Metrics
}

// NewMetricsReporter creates a reporter over m
func NewMetricsReporter(m *monitoring.Metrics) *MetricsReporter {
	return &MetricsReporter{metrics: m}
}

// OnSample counts the sample
func (r *MetricsReporter) OnSample(tc *TestCase) {
	r.metrics.ObserveSample(tc.Source)
}

// OnNewCoverage is a no-op; coverage gauges are set by the optimizer
func (r *MetricsReporter) OnNewCoverage(*TestCase) {}

// MultiReporter fans events out to several reporters
type MultiReporter []Reporter

// OnSample notifies every reporter
func (m MultiReporter) OnSample(tc *TestCase) {
	for _, r := range m {
		r.OnSample(tc)
	}
}

// OnNewCoverage notifies every reporter
func (m MultiReporter) OnNewCoverage(tc *TestCase) {
	for _, r := range m {
		r.OnNewCoverage(tc)
	}
}
