// Package errs provides the structured error taxonomy for the search core:
// input, resource-limit, model, dimension-mismatch, store, and FTS-
// serialization errors, each carrying enough context to decide whether a
// failure is local (recovered and collected into a batch result) or global
// (surfaced to the caller).
package errs

import "fmt"

// Kind classifies a core error into one of the taxonomy's fixed kinds.
type Kind string

const (
	// KindInput covers file-not-found, permission-denied, and bad project
	// root — always surfaced to the caller.
	KindInput Kind = "input"

	// KindResourceLimit covers chunk-per-file overflow and memory-critical
	// conditions. Per-file fatal; ingest continues with other files.
	KindResourceLimit Kind = "resource_limit"

	// KindModel covers embedding-model initialization failures. GPU
	// failures are recoverable (trigger CPU fallback); CPU failures are
	// fatal.
	KindModel Kind = "model"

	// KindDimensionMismatch covers an embedding whose length differs from
	// the model's declared dimension. Fatal for that embedding only.
	KindDimensionMismatch Kind = "dimension_mismatch"

	// KindStore covers vector/FTS/fingerprint store insertion or deletion
	// failures.
	KindStore Kind = "store"

	// KindFTSSerialization covers FTS index (de)serialization failures,
	// including unknown version.
	KindFTSSerialization Kind = "fts_serialization"
)

// CoreError is the structured error type returned by the search core.
type CoreError struct {
	Kind       Kind
	Message    string
	Path       string // relative file path, when applicable
	Cause      error
	Recoverable bool // true if the caller may continue past this error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is matches CoreErrors by Kind, so errors.Is(err, &CoreError{Kind: KindInput}) works.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a CoreError of the given kind.
func New(kind Kind, message string, cause error) *CoreError {
	return &CoreError{
		Kind:        kind,
		Message:     message,
		Cause:       cause,
		Recoverable: kind == KindResourceLimit || kind == KindDimensionMismatch,
	}
}

// WithPath attaches the relative file path this error concerns.
func (e *CoreError) WithPath(path string) *CoreError {
	e.Path = path
	return e
}

// Input builds a KindInput error (not found, permission denied, bad root).
func Input(message string, cause error) *CoreError {
	return New(KindInput, message, cause)
}

// ResourceLimit builds a KindResourceLimit error (chunk cap overflow,
// memory critical). Always per-file recoverable.
func ResourceLimit(message string, cause error) *CoreError {
	return New(KindResourceLimit, message, cause)
}

// Model builds a KindModel error. recoverable should be true only for a
// GPU-init failure that will fall back to CPU.
func Model(message string, cause error, recoverable bool) *CoreError {
	e := New(KindModel, message, cause)
	e.Recoverable = recoverable
	return e
}

// DimensionMismatch builds a KindDimensionMismatch error for one embedding
// whose length doesn't match the model's declared dimension.
func DimensionMismatch(expected, got int) *CoreError {
	return New(KindDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", expected, got), nil)
}

// Store builds a KindStore error (insertion/deletion failure). Pass
// corrupt=true when the underlying store reports corruption so the caller
// can recommend a rebuild.
func Store(message string, cause error, corrupt bool) *CoreError {
	e := New(KindStore, message, cause)
	if corrupt {
		e.Message = message + " (index corrupt, rebuild recommended)"
	}
	return e
}

// FTSSerialization builds a KindFTSSerialization error, typically for an
// unknown on-disk version the engine refuses to load.
func FTSSerialization(message string, cause error) *CoreError {
	return New(KindFTSSerialization, message, cause)
}

// IsRecoverable reports whether err is a CoreError marked recoverable
// (i.e. a local, per-item failure the caller should collect and continue
// past, rather than a global failure that must be surfaced).
func IsRecoverable(err error) bool {
	ce, ok := err.(*CoreError)
	if !ok {
		return false
	}
	return ce.Recoverable
}

// KindOf extracts the Kind from err, returning "" if err is not a CoreError.
func KindOf(err error) Kind {
	ce, ok := err.(*CoreError)
	if !ok {
		return ""
	}
	return ce.Kind
}
