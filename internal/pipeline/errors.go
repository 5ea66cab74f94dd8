package pipeline

import "fmt"

// Kind classifies a pipeline error for propagation-policy decisions.
type Kind int

const (
	// KindCancelled is user-initiated; propagates silently to the UI.
	KindCancelled Kind = iota
	// KindPreconditionFailed means a step's required context key was missing.
	KindPreconditionFailed
	// KindTransient is retried with backoff inside the component that saw it.
	KindTransient
	// KindFatal covers auth failures, malformed requests, encoder failure,
	// and permission-denied after one retry.
	KindFatal
	// KindPartialSynthesisFailure means some TTS tasks exhausted retries but
	// others succeeded; the merge proceeds on what exists.
	KindPartialSynthesisFailure
	// KindNoPronounceableContent means the input had no alphanumeric text.
	KindNoPronounceableContent
	// KindMissingFFmpeg means the AudioEncoder could not load.
	KindMissingFFmpeg
)

func (k Kind) String() string {
	switch k {
	case KindCancelled:
		return "Cancelled"
	case KindPreconditionFailed:
		return "PreconditionFailed"
	case KindTransient:
		return "Transient"
	case KindFatal:
		return "Fatal"
	case KindPartialSynthesisFailure:
		return "PartialSynthesisFailure"
	case KindNoPronounceableContent:
		return "NoPronounceableContent"
	case KindMissingFFmpeg:
		return "MissingFFmpeg"
	default:
		return "Unknown"
	}
}

// Error is the typed error every pipeline step and the Orchestrator
// propagate. Step carries the name of the step in which the error
// originated, if any.
type Error struct {
	Kind    Kind
	Step    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: %s: %s", e.Step, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a pipeline Error.
func NewError(kind Kind, step, message string, err error) *Error {
	return &Error{Kind: kind, Step: step, Message: message, Err: err}
}

// IsCancelled reports whether err is (or wraps) a Cancelled pipeline error.
func IsCancelled(err error) bool {
	var pe *Error
	return asError(err, &pe) && pe.Kind == KindCancelled
}

func asError(err error, target **Error) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
