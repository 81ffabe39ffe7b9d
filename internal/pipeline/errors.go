package pipeline

import "fmt"

// Kind classifies an Error by the taxonomy in spec.md §7. Kinds are not
// distinct Go types so callers keep using a single errors.As(*Error) path;
// Kind only changes how the CLI reports and exits.
type Kind string

const (
	KindUsage            Kind = "usage"
	KindConfig           Kind = "config"
	KindFileSystem       Kind = "filesystem"
	KindPatternSyntax    Kind = "pattern_syntax"
	KindGit              Kind = "git"
	KindTransformer      Kind = "transformer"
	KindNetwork          Kind = "network"
	KindTimeout          Kind = "timeout"
	KindSecretsDetected  Kind = "secrets_detected"
	KindCancelled        Kind = "cancelled"
)

// Error is the single structured error type used across the pipeline. It
// carries an exit Code and an optional wrapped cause so errors.Is/errors.As
// can traverse into driver errors (os.PathError, exec.ExitError, ...).
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap enables errors.Is and errors.As to traverse into Err.
func (e *Error) Unwrap() error {
	return e.Err
}

// defaultExitCode maps a Kind to the exit code it carries when fatal, per
// spec.md §7.
func defaultExitCode(k Kind) int {
	switch k {
	case KindUsage:
		return int(ExitUsage)
	default:
		return int(ExitError)
	}
}

// NewError constructs an Error of the given kind with the default exit code
// for that kind.
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Code: defaultExitCode(kind), Message: msg, Err: err}
}

// NewPartialError creates an Error with ExitPartial for "some records failed,
// output still produced" scenarios.
func NewPartialError(msg string, err error) *Error {
	return &Error{Kind: KindFileSystem, Code: int(ExitPartial), Message: msg, Err: err}
}

// NewUsageError creates a fatal UsageError, exit 2.
func NewUsageError(msg string) *Error {
	return NewError(KindUsage, msg, nil)
}

// NewConfigError creates a ConfigError. Fatal unless --no-validate is set;
// callers decide whether to surface or downgrade it to a warning.
func NewConfigError(msg string, err error) *Error {
	return NewError(KindConfig, msg, err)
}

// NewPatternSyntaxError creates a fatal PatternSyntaxError for a malformed glob.
func NewPatternSyntaxError(pattern string, err error) *Error {
	return NewError(KindPatternSyntax, fmt.Sprintf("invalid pattern %q", pattern), err)
}

// NewGitError creates a GitError for a failed external git invocation.
func NewGitError(msg string, err error) *Error {
	return NewError(KindGit, msg, err)
}

// NewTransformerError creates a TransformerError for a single record/transformer
// failure. Soft by default; the Transform stage decides whether to annotate
// or escalate based on the transformer's FatalOnError trait.
func NewTransformerError(transformer, path string, err error) *Error {
	return NewError(KindTransformer, fmt.Sprintf("transformer %q failed on %q", transformer, path), err)
}

// NewNetworkError creates a NetworkError for AI or external-source fetch failures.
func NewNetworkError(msg string, err error) *Error {
	return NewError(KindNetwork, msg, err)
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(msg string, err error) *Error {
	return NewError(KindTimeout, msg, err)
}

// NewSecretsDetectedError creates a SecretsDetected error. Fatal only when
// --fail-on-secrets is set; otherwise callers treat detection as informational.
func NewSecretsDetectedError(count int) *Error {
	return NewError(KindSecretsDetected, fmt.Sprintf("%d likely secret(s) detected", count), nil)
}

// NewCancelledError creates a CancelledError for a user-initiated abort.
func NewCancelledError() *Error {
	return NewError(KindCancelled, "operation cancelled", nil)
}
