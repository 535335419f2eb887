/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logging_test.go
Description: Tests for logger configuration, file output and the custom formatter.
*/

package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/morellic/glade-full/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggerConfigValidate tests config validation
func TestLoggerConfigValidate(t *testing.T) {
	assert.NoError(t, logging.DefaultLoggerConfig().Validate())

	c := logging.DefaultLoggerConfig()
	c.Format = "xml"
	assert.Error(t, c.Validate())

	c = logging.DefaultLoggerConfig()
	c.Level = "loud"
	assert.Error(t, c.Validate())

	c = logging.DefaultLoggerConfig()
	c.MaxFiles = 0
	assert.Error(t, c.Validate())
	c.OutputDir = ""
	assert.NoError(t, c.Validate(), "max_files is irrelevant without log files")
}

// TestLoggerWritesFileAndConsole tests that entries reach both sinks
func TestLoggerWritesFileAndConsole(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()
	l, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelDebug,
		Format:    logging.LogFormatCustom,
		OutputDir: dir,
		MaxFiles:  2,
		Console:   &console,
	})
	require.NoError(t, err)

	l.LogSample(3, "MutationSampler", "(a)")
	l.LogCoverage(3, 12, 4.5)
	l.LogReweight(100, 2.25)
	l.LogStats(10, 8, 12, nil)
	path := l.FilePath()
	require.NoError(t, l.Close())

	out := console.String()
	assert.Contains(t, out, "[SAMPLE]")
	assert.Contains(t, out, `input="(a)"`)
	assert.Contains(t, out, "[COVERAGE]")
	assert.Contains(t, out, "covered=12")
	assert.Contains(t, out, "[REWEIGHT]")
	assert.Contains(t, out, "[STATS]")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "New coverage")
}

// TestLoggerCleanup tests removal of old log files
func TestLoggerCleanup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"glade_2020-01-01_00-00-00.log", "glade_2020-01-02_00-00-00.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	l, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    logging.LogFormatJSON,
		OutputDir: dir,
		MaxFiles:  1,
		Console:   &bytes.Buffer{},
	})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "glade_*.log"))
	require.NoError(t, err)
	assert.Equal(t, []string{l.FilePath()}, files)
}

// TestCustomFormatter tests plain output with sorted fields
func TestCustomFormatter(t *testing.T) {
	f := &logging.CustomFormatter{}
	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.WarnLevel,
		Message: "Statistics update",
		Data:    logrus.Fields{"valid": 2, "samples": 3, "uptime": time.Second},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING [STATS] Statistics update samples=3 uptime=1s valid=2\n", string(out))
}
