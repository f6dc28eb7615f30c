package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// Exit codes surfaced by the CLI. A build whose stats carry soft errors must
// exit with a status distinct from argument-validation failures, so the two
// are kept on separate constants.
const (
	ExitOK            = 0
	ExitGeneralError  = 1
	ExitInvalidUsage  = 2  // argument / validation failures
	ExitConfigError   = 7  // configuration errors
	ExitInternalError = 10 // unclassified internal failures
	ExitBuildError    = 11 // build pipeline failures and soft build errors
	ExitRuntimeError  = 12 // watch / runtime failures
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}

	if be, ok := err.(*BundlerError); ok {
		return a.exitCodeFromBundler(be)
	}

	return ExitGeneralError
}

// exitCodeFromBundler maps BundlerError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromBundler(err *BundlerError) int {
	switch err.Category {
	case CategoryValidation:
		return ExitInvalidUsage
	case CategoryConfig:
		return ExitConfigError
	case CategoryCompile, CategoryHook, CategoryEmit, CategoryRecords, CategoryFileSystem, CategoryConcurrency:
		return ExitBuildError
	case CategoryWatch, CategoryRuntime:
		return ExitRuntimeError
	case CategoryInternal:
		return ExitInternalError
	default:
		return ExitGeneralError
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if be, ok := err.(*BundlerError); ok {
		return a.formatBundler(be)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatBundler formats a BundlerError for display.
func (a *CLIErrorAdapter) formatBundler(err *BundlerError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if be, ok := err.(*BundlerError); ok {
		return be.Category == CategoryInternal ||
			be.Category == CategoryRuntime ||
			be.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if be, ok := err.(*BundlerError); ok {
		level := a.slogLevelFromSeverity(be.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(be.Category)),
		}
		if be.Retryable {
			attrs = append(attrs, slog.Bool("retryable", true))
		}

		a.logger.LogAttrs(nil, level, be.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts BundlerError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
