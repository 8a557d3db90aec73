package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/reposcout/schema"
	log "github.com/sirupsen/logrus"
)

// Score label constants.
const (
	StrongValue = "Strong" // Strong value
	SolidValue  = "Solid"  // Solid value
	WeakValue   = "Weak"   // Weak value
	PoorValue   = "Poor"   // Poor value
)

// Color variables for console output.
var (
	StrongColor = color.New(color.FgGreen, color.Bold) // StrongColor represents a clear recommendation.
	SolidColor  = color.New(color.FgCyan)              // SolidColor represents a sound candidate.
	WeakColor   = color.New(color.FgYellow)            // WeakColor represents standard caution.
	PoorColor   = color.New(color.FgRed, color.Bold)   // PoorColor represents a candidate to avoid.
)

// statusColors maps each filter status to its console color.
var statusColors = map[schema.FilterStatus]*color.Color{
	schema.PassedStatus:  StrongColor,
	schema.WarningStatus: WeakColor,
	schema.FailedStatus:  PoorColor,
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.WarnLevel)
}

// GetPlainLabel returns a plain text label for a score in [0,1].
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 0.75:
		return StrongValue
	case score >= 0.5:
		return SolidValue
	case score >= 0.25:
		return WeakValue
	default:
		return PoorValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case StrongValue:
		return StrongColor.Sprint(text)
	case SolidValue:
		return SolidColor.Sprint(text)
	case WeakValue:
		return WeakColor.Sprint(text)
	default:
		return PoorColor.Sprint(text)
	}
}

// GetStatusLabel returns the filter status, colored when useColors is set.
func GetStatusLabel(status schema.FilterStatus, useColors bool) string {
	c, ok := statusColors[status]
	if !useColors || !ok {
		return string(status)
	}
	return c.Sprint(string(status))
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// SetLogLevel sets the level of the process-wide logger.
func SetLogLevel(level log.Level) {
	log.SetLevel(level)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	log.WithError(err).Error(msg)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	log.WithError(err).Warn(msg)
}

// LogInfo logs an informational message with optional structured fields.
func LogInfo(msg string, fields map[string]any) {
	log.WithFields(log.Fields(fields)).Info(msg)
}

// LogDebug logs a debug message with optional structured fields.
func LogDebug(msg string, fields map[string]any) {
	log.WithFields(log.Fields(fields)).Debug(msg)
}

// GetRecordsDBFilePath returns the path to the SQLite DB file for source records.
func GetRecordsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".reposcout_records.db"
	}
	return filepath.Join(homeDir, ".reposcout_records.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run artifacts.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".reposcout_runs.db"
	}
	return filepath.Join(homeDir, ".reposcout_runs.db")
}

// TruncateText truncates a string to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 to leave room for the ellipsis and at least one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
