package tokens

import "errors"

type Kind string

const (
	KindMalformed         Kind = "malformed"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindExpired           Kind = "expired"
)

var (
	ErrMalformed         = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrExpired           = errors.New("token expired")
)

// VerifyError classifies a failed verification. Every kind means the
// caller is anonymous.
type VerifyError struct {
	Kind Kind
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *VerifyError) Unwrap() error { return e.Err }

func (e *VerifyError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrSignatureMismatch:
		return e.Kind == KindSignatureMismatch
	case ErrExpired:
		return e.Kind == KindExpired
	}
	return false
}

// KindOf returns the failure kind of err, or "" if err is not a VerifyError.
func KindOf(err error) Kind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
