// Package failure holds the tagged error kinds surfaced by the extraction
// pipeline. Every externally visible failure is a *Error with a Kind so that
// callers can branch on it instead of parsing messages.
package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
)

type Kind string

const (
	KindFetch         Kind = "FETCH_FAILED"
	KindInsufficient  Kind = "INSUFFICIENT_CONTENT"
	KindModelResponse Kind = "MODEL_RESPONSE_FAILED"
	KindParse         Kind = "PARSE_FAILED"
	KindPersist       Kind = "PERSIST_FAILED"
)

// Attempt records one model call made by the prompt extractor.
type Attempt struct {
	Model   string
	Elapsed time.Duration
	Timeout bool
	Err     string
}

type Error struct {
	Kind     Kind
	Detail   string
	Err      error
	Stack    []byte
	Attempts []Attempt
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) StackTrace() []byte { return e.Stack }

// Models lists the model identifiers that were tried, in order.
func (e *Error) Models() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Model)
	}
	return out
}

// Summary renders the attempts in a single line for logs and CLI output.
func (e *Error) Summary() string {
	if len(e.Attempts) == 0 {
		return e.Error()
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		s := a.Model + ": " + a.Err
		if a.Timeout {
			s += " (timeout)"
		}
		parts = append(parts, s)
	}
	return e.Error() + " [" + strings.Join(parts, "; ") + "]"
}

func New(kind Kind, detail string, err error) *Error {
	var stack []byte
	if err != nil {
		var ge *goerrors.Error
		if errors.As(err, &ge) {
			stack = ge.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(detail).Stack()
	}
	return &Error{Kind: kind, Detail: detail, Err: err, Stack: stack}
}

func Fetch(detail string, err error) *Error { return New(KindFetch, detail, err) }

func Insufficient(detail string) *Error { return New(KindInsufficient, detail, nil) }

func Parse(detail string, err error) *Error { return New(KindParse, detail, err) }

func Persist(detail string, err error) *Error { return New(KindPersist, detail, err) }

// ModelResponse builds the failure returned when no candidate model answered.
// The last attempt's error becomes the cause.
func ModelResponse(attempts []Attempt, last error) *Error {
	e := New(KindModelResponse, fmt.Sprintf("no usable response from %d model(s)", len(attempts)), last)
	e.Attempts = append([]Attempt(nil), attempts...)
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Terminal reports whether a failure kind aborts a request without any record.
func Terminal(kind Kind) bool {
	switch kind {
	case KindFetch, KindInsufficient, KindParse:
		return true
	}
	return false
}
