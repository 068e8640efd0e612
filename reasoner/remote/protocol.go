package remote

import (
	stderrors "errors"
	"fmt"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectReason        = "reason"
	SubjectConsistency   = "consistency"
	SubjectUnsatisfiable = "unsatisfiable"
	SubjectExplain       = "explain"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "semreason.backend"

// Error codes carried in replies.
const (
	CodeUnsupported = "unsupported"
	CodeTimeout     = "timeout"
	CodeInvalid     = "invalid"
	CodeInternal    = "internal"
)

// Request is the body of every request.
type Request struct {
	Dataset       triple.Dataset          `json:"dataset"`
	Configuration *reasoner.Configuration `json:"configuration,omitempty"`
}

// Reply is the body of every reply. Exactly one payload field is set on
// success; Error is set on failure.
type Reply struct {
	Result     *reasoner.Result `json:"result,omitempty"`
	Consistent *bool            `json:"consistent,omitempty"`
	Lines      []string         `json:"lines,omitempty"`
	Error      *ReplyError      `json:"error,omitempty"`
}

// ReplyError describes a failure on the serving side.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ReplyError) Error() string {
	return e.Code + ": " + e.Message
}

// toReplyError classifies a backend error for the wire.
func toReplyError(err error) *ReplyError {
	code := CodeInternal
	switch {
	case stderrors.Is(err, errors.ErrCapabilityUnsupported):
		code = CodeUnsupported
	case stderrors.Is(err, errors.ErrReasoningTimeout):
		code = CodeTimeout
	case errors.IsInvalid(err):
		code = CodeInvalid
	}
	return &ReplyError{Code: code, Message: err.Error()}
}

// fromReplyError turns a wire error back into the local taxonomy.
func fromReplyError(e *ReplyError, method string) error {
	switch e.Code {
	case CodeUnsupported:
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrCapabilityUnsupported, e.Message), component, method, "remote call")
	case CodeTimeout:
		return errors.WrapTransient(fmt.Errorf("%w: %s", errors.ErrReasoningTimeout, e.Message), component, method, "remote call")
	case CodeInvalid:
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidData, e.Message), component, method, "remote call")
	default:
		return errors.WrapTransient(fmt.Errorf("%w: %s", errors.ErrBackendUnavailable, e.Message), component, method, "remote call")
	}
}
