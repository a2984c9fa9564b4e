package logutil

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

const maxResponseDump = 4096

var (
	logger         = log.NewWithOptions(os.Stderr, log.Options{Prefix: "tootshare", ReportTimestamp: true, Level: log.InfoLevel})
	verbose        bool
	debugResponses bool
	mu             sync.RWMutex
)

// SetVerbose adjusts the global logging level.
func SetVerbose(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = enable
	if enable {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// Verbose reports whether verbose logging is enabled.
func Verbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetDebugResponses enables dumping raw API response bodies.
func SetDebugResponses(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	debugResponses = enable
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Debugf logs a debug message when verbose logging is enabled.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}

// DebugResponse logs a raw response body when response debugging is on.
// Long bodies are cut.
func DebugResponse(label, body string) {
	mu.RLock()
	enabled := debugResponses
	mu.RUnlock()
	if !enabled || strings.TrimSpace(body) == "" {
		return
	}
	if len(body) > maxResponseDump {
		body = body[:maxResponseDump] + "..."
	}
	logger.Warn("response body", "label", label, "body", body)
}
