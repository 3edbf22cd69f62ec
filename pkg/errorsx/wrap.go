package errorsx

import "errors"

// ReasonedError carries a machine-readable reason code next to the
// underlying error. Codes survive fmt.Errorf %w wrapping because Reason
// walks the chain with errors.As.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error { return e.Err }

// New builds a reasoned error from a plain message.
func New(reason ReasonCode, msg string) error {
	return ReasonedError{Err: errors.New(msg), Reason: reason}
}

// Wrap attaches reason to err. A nil err stays nil, and the first code
// attached to a chain stays authoritative.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	if _, ok := lookup(err); ok {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason reports the code attached to err, or ReasonUnknown.
func Reason(err error) ReasonCode {
	if code, ok := lookup(err); ok {
		return code
	}
	return ReasonUnknown
}

// HasReason reports whether err carries the given code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

func lookup(err error) (ReasonCode, bool) {
	var re ReasonedError
	if err == nil || !errors.As(err, &re) {
		return "", false
	}
	return re.Reason, true
}
