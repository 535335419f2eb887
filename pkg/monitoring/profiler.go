/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: profiler.go
Description: CPU and heap profiling of a fuzzing run. The CPU profile covers the span
between Start and Stop; the heap profile is written at Stop. Files land in one output
directory and are named by profile type and start time.
*/

package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

// ProfilerType represents the type of profiling
type ProfilerType string

const (
	ProfilerTypeCPU    ProfilerType = "cpu"
	ProfilerTypeMemory ProfilerType = "memory"
)

// ProfileResult describes one written profile
type ProfileResult struct {
	Type       ProfilerType  `json:"type"`
	StartTime  time.Time     `json:"start_time"`
	Duration   time.Duration `json:"duration"`
	OutputFile string        `json:"output_file"`
}

// Profiler writes CPU and heap profiles for one run
type Profiler struct {
	outputDir string
	logger    logrus.FieldLogger
	startTime time.Time
	cpuFile   *os.File
	running   bool
}

// NewProfiler creates a profiler writing into outputDir
func NewProfiler(outputDir string, logger logrus.FieldLogger) *Profiler {
	return &Profiler{outputDir: outputDir, logger: logger}
}

func (p *Profiler) path(t ProfilerType) string {
	return filepath.Join(p.outputDir, fmt.Sprintf("%s_%d.prof", t, p.startTime.Unix()))
}

// Start begins CPU profiling
func (p *Profiler) Start() error {
	if p.running {
		return fmt.Errorf("profiler already running")
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	p.startTime = time.Now()

	file, err := os.Create(p.path(ProfilerTypeCPU))
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	p.cpuFile = file
	p.running = true
	p.logger.WithField("dir", p.outputDir).Info("CPU profiling started")
	return nil
}

// Stop ends CPU profiling and writes the heap profile
func (p *Profiler) Stop() ([]ProfileResult, error) {
	if !p.running {
		return nil, fmt.Errorf("profiler not running")
	}
	p.running = false
	duration := time.Since(p.startTime)

	pprof.StopCPUProfile()
	if err := p.cpuFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close CPU profile: %w", err)
	}
	results := []ProfileResult{{
		Type:       ProfilerTypeCPU,
		StartTime:  p.startTime,
		Duration:   duration,
		OutputFile: p.cpuFile.Name(),
	}}

	heapPath := p.path(ProfilerTypeMemory)
	file, err := os.Create(heapPath)
	if err != nil {
		return results, fmt.Errorf("failed to create memory profile file: %w", err)
	}
	defer file.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(file); err != nil {
		return results, fmt.Errorf("failed to write memory profile: %w", err)
	}
	results = append(results, ProfileResult{
		Type:       ProfilerTypeMemory,
		StartTime:  p.startTime,
		Duration:   duration,
		OutputFile: heapPath,
	})
	p.logger.WithField("duration", duration.Round(time.Millisecond)).Info("Profiling stopped")
	return results, nil
}
