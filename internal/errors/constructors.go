package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BundlerError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *BundlerError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *BundlerError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Build pipeline errors

func HookFailed(hook string, cause error) *BundlerError {
	return Wrap(cause, CategoryHook, SeverityFatal, "hook tap failed").
		WithContext("hook", hook)
}

func CompileFailed(cause error) *BundlerError {
	return Wrap(cause, CategoryCompile, SeverityFatal, "compile failed")
}

func EmitFailed(asset string, cause error) *BundlerError {
	return Wrap(cause, CategoryEmit, SeverityFatal, "asset emission failed").
		WithContext("asset", asset)
}

func RecordsParseFailed(path string, cause error) *BundlerError {
	return Wrap(cause, CategoryRecords, SeverityFatal, "records file is malformed").
		WithContext("path", path)
}

func FileSystemError(operation, path string, cause error) *BundlerError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// Watch errors

// WatchError marks a watch-mode failure. Watch failures are retryable: the
// next invalidation schedules a fresh cycle.
func WatchError(cause error) *BundlerError {
	return WrapRetryable(cause, CategoryWatch, SeverityError, "watch cycle failed")
}

// Internal errors

func InternalError(message string, cause error) *BundlerError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
