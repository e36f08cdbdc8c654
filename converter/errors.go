package converter

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind. Adapters wrap them with %w so the
// orchestrator can classify a failure without knowing which adapter raised it.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrWorkspaceCreation = errors.New("workspace creation failed")
	ErrRasterization     = errors.New("rasterization failed")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrRecognition       = errors.New("recognition failed")
	ErrDocumentWrite     = errors.New("document write failed")
	ErrUnexpectedFault   = errors.New("unexpected fault")
)

// Kind classifies a failed conversion.
type Kind int

const (
	KindUnexpectedFault Kind = iota
	KindInvalidInput
	KindWorkspaceCreation
	KindRasterization
	KindEngineUnavailable
	KindRecognition
	KindDocumentWrite
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindWorkspaceCreation:
		return "workspace_creation"
	case KindRasterization:
		return "rasterization"
	case KindEngineUnavailable:
		return "engine_unavailable"
	case KindRecognition:
		return "recognition"
	case KindDocumentWrite:
		return "document_write"
	default:
		return "unexpected_fault"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindWorkspaceCreation:
		return ErrWorkspaceCreation
	case KindRasterization:
		return ErrRasterization
	case KindEngineUnavailable:
		return ErrEngineUnavailable
	case KindRecognition:
		return ErrRecognition
	case KindDocumentWrite:
		return ErrDocumentWrite
	default:
		return ErrUnexpectedFault
	}
}

// ConversionError is the terminal failure of one job.
type ConversionError struct {
	Kind  Kind
	JobID string
	Stage State
	Page  int // 0 when the failure is not tied to a page
	Err   error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s (stage %s", e.Kind, e.Stage)
	if e.JobID != "" {
		msg += ", job " + e.JobID
	}
	if e.Page > 0 {
		msg += fmt.Sprintf(", page %d", e.Page)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *ConversionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Public returns a short message safe to hand back to a caller: no paths,
// no engine output.
func (e *ConversionError) Public() string {
	switch e.Kind {
	case KindInvalidInput:
		return "the file is not an acceptable PDF: " + publicCause(e.Err)
	case KindWorkspaceCreation:
		return "server error: could not prepare a working area for the conversion"
	case KindRasterization:
		return "could not read the PDF; it may be corrupted, encrypted or not a PDF"
	case KindEngineUnavailable:
		return "server error: the OCR or PDF rendering engine is not installed"
	case KindRecognition:
		if e.Page > 0 {
			return fmt.Sprintf("text recognition failed on page %d", e.Page)
		}
		return "text recognition failed"
	case KindDocumentWrite:
		return "server error: could not write the Word document"
	default:
		return "internal server error"
	}
}

// publicCause picks the caller-safe part of an input validation error.
func publicCause(err error) string {
	var ie *inputError
	if errors.As(err, &ie) {
		return ie.reason
	}
	return "rejected"
}

// inputError carries a caller-safe reason for an ErrInvalidInput failure.
type inputError struct {
	reason string
}

func (e *inputError) Error() string { return e.reason }

func (e *inputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(format string, args ...any) error {
	return &inputError{reason: fmt.Sprintf(format, args...)}
}

// kindOf maps an adapter error to the failure kind for the given stage.
// Engine unavailability wins over the stage's own kind.
func kindOf(err error, stageKind Kind) Kind {
	switch {
	case errors.Is(err, ErrEngineUnavailable):
		return KindEngineUnavailable
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return stageKind
	}
}
