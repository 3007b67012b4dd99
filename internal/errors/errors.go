// Package errors defines the error types shared by the pipeline, its stages,
// and the completion providers.
//
// Three structured types carry context about a failure:
//   - StageError: a pipeline stage failed; Stage decides whether the run ends
//   - ProviderError: a completion provider failed at the transport level
//   - ValidationError: a request or configuration value was rejected
//
// Each renders as "<kind> [key=value, ...]: message: cause" and unwraps to its
// cause, so errors.Is against the sentinels below sees through them:
//
//	err := errors.NewStageError("coding_turn", "completion failed", cause).WithWorker("w1").WithTurn(2)
//	if errors.StageOf(err) == "installing_deps" { ... }
//	if errors.IsCanceled(err) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Standard library helpers, so callers need only one errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity ranks how serious a failure is. The pipeline logs warnings and
// keeps going; anything at SeverityError or above ends the run.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

var severityNames = [...]string{"debug", "info", "warning", "error", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// Pipeline sentinels.
var (
	ErrEmptyPrompt    = New("prompt is empty")
	ErrUnknownVerdict = New("review verdict unknown")
	ErrRevisionLimit  = New("revision limit reached")
)

// Provider sentinels.
var (
	ErrUnknownProvider     = New("unknown provider")
	ErrMissingCredentials  = New("missing provider credentials")
	ErrProviderUnavailable = New("provider unavailable")
)

var (
	// ErrCanceled marks a run stopped by its caller.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput matches every ValidationError.
	ErrInvalidInput = New("invalid input")
)

// Classified is implemented by the structured errors in this package.
type Classified interface {
	error
	Severity() Severity
	IsRetryable() bool
}

// detail is the state every structured error carries.
type detail struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (d *detail) Unwrap() error        { return d.cause }
func (d *detail) Severity() Severity   { return d.severity }
func (d *detail) IsRetryable() bool    { return d.retryable }
func (d *detail) causeIs(t error) bool { return d.cause != nil && errors.Is(d.cause, t) }

// render formats kind, the non-empty context pairs, the message and cause.
func (d *detail) render(kind string, pairs ...string) string {
	var b strings.Builder
	b.WriteString(kind)

	var ctx []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			ctx = append(ctx, pairs[i]+"="+pairs[i+1])
		}
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(ctx, ", "))
	}

	b.WriteString(": ")
	b.WriteString(d.message)
	if d.cause != nil {
		fmt.Fprintf(&b, ": %v", d.cause)
	}
	return b.String()
}

// StageError reports a failure inside one pipeline stage. Stages only say
// what went wrong; the pipeline decides from Stage whether the run ends.
type StageError struct {
	detail
	Stage  string
	Worker string
	// Turn is the 1-based coding turn, or -1 outside the turn loop.
	Turn int
}

// NewStageError returns an error-severity StageError for stage.
func NewStageError(stage, message string, cause error) *StageError {
	return &StageError{
		detail: detail{message: message, cause: cause, severity: SeverityError},
		Stage:  stage,
		Turn:   -1,
	}
}

// WithWorker records the agent role that was active.
func (e *StageError) WithWorker(worker string) *StageError {
	e.Worker = worker
	return e
}

// WithTurn records the coding turn.
func (e *StageError) WithTurn(turn int) *StageError {
	e.Turn = turn
	return e
}

// WithSeverity overrides the severity, e.g. to downgrade a non-fatal stage.
func (e *StageError) WithSeverity(s Severity) *StageError {
	e.severity = s
	return e
}

func (e *StageError) Error() string {
	turn := ""
	if e.Turn >= 0 {
		turn = fmt.Sprint(e.Turn)
	}
	return e.render("stage error", "stage", e.Stage, "worker", e.Worker, "turn", turn)
}

func (e *StageError) Is(target error) bool {
	if _, ok := target.(*StageError); ok {
		return true
	}
	return e.causeIs(target)
}

// IsRetryable is true when the stage itself or its cause is retryable.
func (e *StageError) IsRetryable() bool {
	return e.retryable || IsRetryable(e.cause)
}

// ProviderError reports a transport failure talking to OpenAI or Ollama.
type ProviderError struct {
	detail
	Provider   string
	Model      string
	StatusCode int
}

// NewProviderError returns a non-retryable ProviderError.
func NewProviderError(provider, message string, cause error) *ProviderError {
	return &ProviderError{
		detail:   detail{message: message, cause: cause, severity: SeverityError},
		Provider: provider,
	}
}

func (e *ProviderError) WithModel(model string) *ProviderError {
	e.Model = model
	return e
}

// WithStatusCode records the HTTP status. 429 and 5xx are retryable.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	e.retryable = code == 429 || code >= 500
	return e
}

func (e *ProviderError) WithRetryable(r bool) *ProviderError {
	e.retryable = r
	return e
}

func (e *ProviderError) Error() string {
	status := ""
	if e.StatusCode != 0 {
		status = fmt.Sprint(e.StatusCode)
	}
	return e.render("provider error", "provider", e.Provider, "model", e.Model, "status", status)
}

func (e *ProviderError) Is(target error) bool {
	if _, ok := target.(*ProviderError); ok {
		return true
	}
	return e.causeIs(target)
}

// ValidationError reports a rejected request or configuration value.
type ValidationError struct {
	detail
	Field string
	Value any
}

// NewValidationError returns a warning-severity ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{detail: detail{message: message, severity: SeverityWarning}}
}

// WithField names the offending field using its wire name, e.g. "maxTurns".
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	value := ""
	if e.Value != nil {
		value = fmt.Sprint(e.Value)
	}
	return e.render("validation error", "field", e.Field, "value", value)
}

func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput || e.causeIs(target)
}

// IsCanceled reports whether err is a caller-initiated stop rather than a
// failure. Deadline expiry is not cancellation.
func IsCanceled(err error) bool {
	return err != nil && (Is(err, context.Canceled) || Is(err, ErrCanceled))
}

// IsRetryable reports whether err is transient: a retryable Classified error
// or an expired deadline.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var c Classified
	if As(err, &c) {
		return c.IsRetryable()
	}
	return Is(err, context.DeadlineExceeded)
}

// GetSeverity returns err's severity. Unclassified errors are SeverityError
// and nil is SeverityDebug.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var c Classified
	if As(err, &c) {
		return c.Severity()
	}
	return SeverityError
}

// StageOf returns the stage of the outermost StageError in err's chain, or "".
func StageOf(err error) string {
	var stageErr *StageError
	if As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
