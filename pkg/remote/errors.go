package remote

import (
	"errors"
	"fmt"

	"github.com/shelfhub/shelfclient/pkg/constants"
)

// Error is a RemoteFailure: the service rejected the call or the call could not complete.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == constants.ErrRemoteFailure
}

// Rejected is the failure payload of a discriminated outcome.
type Rejected struct {
	Reason string
}

func (r Rejected) Error() string {
	return r.Reason
}

// Wrap tags err as a remote failure of op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Op: op, Err: err}
}
