/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatter for fuzzing runs. Prints timestamp, level, an event tag
for sampling, coverage, reweighting and statistics messages, then the fields in sorted
order, optionally with ANSI colors.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter provides compact, colored output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var output strings.Builder

	if f.Timestamp {
		output.WriteString(f.paint(36, entry.Time.Format("2006-01-02 15:04:05.000")))
		output.WriteString(" ")
	}

	output.WriteString(f.paint(levelColor(entry.Level), strings.ToUpper(entry.Level.String())))
	output.WriteString(" ")

	if tag := eventTag(entry.Message); tag != "" {
		output.WriteString(f.paint(35, "["+tag+"]"))
		output.WriteString(" ")
	}

	if f.Caller && entry.HasCaller() {
		output.WriteString(f.paint(33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)))
		output.WriteString(" ")
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteString(" ")
		output.WriteString(f.formatFields(entry.Data))
	}

	output.WriteString("\n")
	return []byte(output.String()), nil
}

func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

// levelColor returns the ANSI color code for a log level
func levelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35 // Magenta
	default:
		return 37 // White
	}
}

// eventTag returns a short tag for well-known run messages
func eventTag(message string) string {
	switch {
	case strings.Contains(message, "Sample"):
		return "SAMPLE"
	case strings.Contains(message, "eweight"):
		return "REWEIGHT"
	case strings.Contains(message, "coverage"), strings.Contains(message, "Coverage"):
		return "COVERAGE"
	case strings.Contains(message, "Statistics"):
		return "STATS"
	default:
		return ""
	}
}

// formatFields formats fields in key order
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, f.paint(34, k)+"="+f.paint(32, formatValue(k, fields[k])))
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value appropriately
func formatValue(key string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case float64:
		if key == "samples_per_sec" {
			return fmt.Sprintf("%.2f/sec", v)
		}
		return fmt.Sprintf("%.4g", v)
	case string:
		if key == "input" {
			if len(v) > 60 {
				return fmt.Sprintf("%q...", v[:60])
			}
			return fmt.Sprintf("%q", v)
		}
		if key == "id" && len(v) > 8 {
			return v[:8]
		}
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
