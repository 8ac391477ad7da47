package auth

import "errors"

// Kind classifies why a credential was rejected.
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindExpired           Kind = "expired"
	KindMalformed         Kind = "malformed"
	KindInvalid           Kind = "invalid"
	KindInvalidCredential Kind = "invalid_credential"
	KindMissingClaim      Kind = "missing_claim"
	KindWrongPassword     Kind = "wrong_password"
)

// Error is a credential failure of a given Kind. Err, when set, is the
// lower-level failure that caused it, so errors.Is sees through layers:
// an expired access token is both ErrInvalidCredential and ErrExpired.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrMalformed         = &Error{Kind: KindMalformed}
	ErrInvalid           = &Error{Kind: KindInvalid}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrMissingClaim      = &Error{Kind: KindMissingClaim}
	ErrWrongPassword     = &Error{Kind: KindWrongPassword}
)

func (e *Error) Error() string {
	msg := "auth: " + e.Kind.Message()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Message is the coarse reason shown to callers.
func (k Kind) Message() string {
	switch k {
	case KindUnauthenticated:
		return "token missing"
	case KindExpired:
		return "token expired"
	case KindWrongPassword:
		return "invalid credentials"
	default:
		return "invalid token"
	}
}

// KindOf returns the outermost Kind in err's chain, or "" if err is not an auth error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Reason picks the caller-facing message for err. Expiry wins over the outer
// kind so clients know a refresh may help.
func Reason(err error) string {
	if errors.Is(err, ErrExpired) {
		return KindExpired.Message()
	}
	if k := KindOf(err); k != "" {
		return k.Message()
	}
	return KindInvalidCredential.Message()
}
