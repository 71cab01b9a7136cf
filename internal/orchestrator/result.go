package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Source says where a successful payload came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
	// SourceComputed marks deterministic local results such as quiz scoring.
	SourceComputed Source = "computed"
)

// ErrorKind classifies why an operation failed or degraded.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindRateLimitExceeded    ErrorKind = "rate_limit_exceeded"
	KindProviderUnavailable  ErrorKind = "provider_unavailable"
	KindProviderTimeout      ErrorKind = "provider_timeout"
	KindMalformedResponse    ErrorKind = "malformed_provider_response"
	KindUnknownOperationType ErrorKind = "unknown_operation_type"
	KindInternal             ErrorKind = "internal"
)

// Error is a classified failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err when it is an *Error, or KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Payload is the body of a successful result. Data holds the structured
// object when one was produced; Text always holds a human-readable form.
type Payload struct {
	Data json.RawMessage `json:"data,omitempty"`
	Text string          `json:"text"`
}

// Failure describes a hard failure.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Result is either a success carrying a Payload and its Source, or a
// Failure. Degraded successes carry the Reason the primary path was not
// taken.
type Result struct {
	Payload  Payload
	Source   Source
	Degraded bool
	Reason   ErrorKind
	Failure  *Failure
}

// Succeeded builds a success result.
func Succeeded(p Payload, src Source) Result {
	return Result{Payload: p, Source: src}
}

// Degrade builds a degraded success result.
func Degrade(p Payload, src Source, reason ErrorKind) Result {
	return Result{Payload: p, Source: src, Degraded: true, Reason: reason}
}

// Failed builds a failure result.
func Failed(kind ErrorKind, msg string) Result {
	return Result{Failure: &Failure{Kind: kind, Message: msg}}
}

// FailedErr builds a failure result from err, keeping its kind when err
// is an *Error.
func FailedErr(err error) Result {
	var e *Error
	if errors.As(err, &e) {
		return Failed(e.Kind, e.Message)
	}
	return Failed(KindInternal, err.Error())
}

// IsSuccess reports whether r carries a payload.
func (r Result) IsSuccess() bool {
	return r.Failure == nil
}

// Err returns the failure as an *Error, or nil for successes.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return &Error{Kind: r.Failure.Kind, Message: r.Failure.Message}
}

// Decode unmarshals the structured payload into v.
func (r Result) Decode(v any) error {
	if r.Failure != nil {
		return r.Err()
	}
	if len(r.Payload.Data) == 0 {
		return errors.New("result has no structured data")
	}
	return json.Unmarshal(r.Payload.Data, v)
}

type resultJSON struct {
	Status   string          `json:"status"`
	Source   Source          `json:"source,omitempty"`
	Degraded bool            `json:"degraded,omitempty"`
	Reason   ErrorKind       `json:"reason,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Text     string          `json:"text,omitempty"`
	Error    *Failure        `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Status: "success"}
	if r.Failure != nil {
		out.Status = "failure"
		out.Error = r.Failure
		return json.Marshal(out)
	}
	out.Source = r.Source
	out.Degraded = r.Degraded
	out.Reason = r.Reason
	out.Data = r.Payload.Data
	out.Text = r.Payload.Text
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var in resultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Result{
		Payload:  Payload{Data: in.Data, Text: in.Text},
		Source:   in.Source,
		Degraded: in.Degraded,
		Reason:   in.Reason,
		Failure:  in.Error,
	}
	return nil
}
