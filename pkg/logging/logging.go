package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFileEnv overrides the log file location. "off" disables the file.
const LogFileEnv = "DELTAPACK_LOG_FILE"

// Options configures Setup
type Options struct {
	Verbosity int
	// Console receives human readable output; defaults to os.Stderr
	Console io.Writer
	// LogFile receives JSON lines; empty means the XDG state location or
	// LogFileEnv, "off" disables it
	LogFile string
}

var (
	mu      sync.Mutex
	logFile *os.File
)

// SetupLogger configures the global logger for a CLI verbosity count
func SetupLogger(verbosity int) {
	Setup(Options{Verbosity: verbosity})
}

// Setup installs the global logger: a console writer plus, when it can be
// opened, an append-only JSON log file. A previous log file is closed.
func Setup(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(LevelFor(opts.Verbosity))

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(console),
	}}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	path := resolveLogFile(opts.LogFile)
	var fileErr error
	if path != "" {
		logFile, fileErr = openLogFile(path)
		if fileErr == nil {
			writers = append(writers, logFile)
		}
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).With().Timestamp()
	if opts.Verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", path).Msg("Failed to create log file, logging to console only")
	}
	log.Debug().Int("verbosity", opts.Verbosity).Str("logFile", path).Msg("Logger initialized")
}

// LevelFor maps a -v count to a level: warnings by default, then info,
// debug and trace
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// ForPackage tags a logger with the package definition being processed
func ForPackage(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("package", name).Logger()
}

// LogOperationStart logs the start of an operation and returns a function to log its completion
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

func resolveLogFile(configured string) string {
	path := configured
	if path == "" {
		path = os.Getenv(LogFileEnv)
	}
	switch {
	case strings.EqualFold(path, "off"):
		return ""
	case path == "":
		return defaultLogFile()
	}
	return path
}

// defaultLogFile returns the log file under the XDG state home
func defaultLogFile() string {
	return filepath.Join(xdg.StateHome, "deltapack", "deltapack.log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
