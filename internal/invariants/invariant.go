// Package invariants records caller-declared expectations about guardrail pipeline state.
//
// A failed invariant is logged as a structured warning keyed by a fixed identifier and
// reported back to the caller as false. Strict mode panics instead, so tests and local
// development fail at the offending call.
package invariants

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"unicode/utf8"
)

// ID identifies a guardrail invariant.
type ID string

const (
	// ScoreInRange: a raw score lies within [0,100] before the ceiling is applied.
	ScoreInRange ID = "INV-1"
	// CeilingNeverRaises: the ceiling-adjusted score is never above the raw score.
	CeilingNeverRaises ID = "INV-2"
	// DecayInRange: the evidence decay factor lies within [0,1].
	DecayInRange ID = "INV-3"
	// HighBandNeedsHighEvidence: a high confidence band implies high evidence quality.
	HighBandNeedsHighEvidence ID = "INV-4"
	// ArtifactHasRunID: every artifact considered for drift carries a run id.
	ArtifactHasRunID ID = "INV-5"
)

const maxDetailLength = 64

var sensitiveKeys = []string{"text", "content", "email", "token", "password", "secret", "url", "name"}

// Context describes a failed expectation. Details must be scalar values; anything else is
// dropped before logging.
type Context struct {
	ID      ID
	Message string
	Details map[string]any
}

// Violation is the panic value raised in strict mode.
type Violation struct {
	ID      ID
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", v.ID, v.Message)
}

// Recorder is notified of every violation, e.g. to count it.
type Recorder func(id ID)

// Checker evaluates invariants. The zero value logs to slog.Default and never panics.
type Checker struct {
	logger      *slog.Logger
	strict      bool
	onViolation Recorder
}

// NewChecker constructs a Checker. strict turns violations into panics.
func NewChecker(logger *slog.Logger, strict bool, onViolation Recorder) *Checker {
	return &Checker{logger: logger, strict: strict, onViolation: onViolation}
}

// Invariant returns cond. When cond is false the violation is logged with sanitized details
// and, in strict mode, raised as a panic carrying a *Violation.
func (c *Checker) Invariant(cond bool, ctx Context) bool {
	if cond {
		return true
	}

	logger := slog.Default()
	strict := false
	var record Recorder
	if c != nil {
		if c.logger != nil {
			logger = c.logger
		}
		strict = c.strict
		record = c.onViolation
	}

	logger.Warn("guardrail invariant violated",
		slog.String("invariant", string(ctx.ID)),
		slog.String("message", ctx.Message),
		slog.Any("details", SafeDetails(ctx.Details)),
	)
	if record != nil {
		record(ctx.ID)
	}
	if strict {
		panic(&Violation{ID: ctx.ID, Message: ctx.Message})
	}
	return false
}

// SafeDetails keeps scalar values only, truncates strings and drops keys that may carry
// user content.
func SafeDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for key, value := range details {
		if isSensitive(key) || value == nil {
			continue
		}
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			out[key] = value
		case reflect.String:
			out[key] = truncate(rv.String(), maxDetailLength)
		}
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
