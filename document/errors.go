package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNotParsed is returned by operations that need the cross-reference
	// table before Parse succeeded.
	ErrNotParsed = errors.New("document not parsed")

	// ErrPageOutOfRange is returned for page indexes outside [0, NumPages)
	ErrPageOutOfRange = errors.New("page index out of range")

	// ErrUnsupportedEncryption is returned for security handlers that are
	// recognised but not implemented.
	ErrUnsupportedEncryption = errors.New("unsupported encryption")
)

// PasswordReason tells whether a password is missing or wrong
type PasswordReason int

const (
	NeedPassword PasswordReason = iota + 1
	IncorrectPassword
)

func (r PasswordReason) String() string {
	switch r {
	case NeedPassword:
		return "need password"
	case IncorrectPassword:
		return "incorrect password"
	}
	return fmt.Sprintf("PasswordReason(%d)", int(r))
}

// PasswordError is returned by Parse when the document is encrypted and the
// given password opens it neither as user nor as owner.
type PasswordError struct {
	Reason PasswordReason
}

func (e *PasswordError) Error() string {
	if e.Reason == NeedPassword {
		return "document is encrypted: password required"
	}
	return "document is encrypted: incorrect password"
}

// AsPasswordError returns the PasswordError wrapped in err, if any
func AsPasswordError(err error) (*PasswordError, bool) {
	var pe *PasswordError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
