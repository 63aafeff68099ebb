package api

import (
	"errors"
	"fmt"

	"github.com/stemsi/exstem-client/internal/response"
)

// Sentinel errors for the recoverable start-attempt failures. The session
// controller re-prompts on these instead of aborting.
var (
	ErrAccessCodeRequired = errors.New("api: access code required")
	ErrAccessCodeInvalid  = errors.New("api: invalid access code")
)

// Error is a typed API failure carrying the server's error code.
type Error struct {
	Status  int
	Code    response.ErrCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
}

// Is maps server error codes onto the package sentinels so callers can use
// errors.Is without inspecting codes directly.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAccessCodeRequired:
		return e.Code == response.ErrAccessCodeRequired
	case ErrAccessCodeInvalid:
		return e.Code == response.ErrInvalidAccessCode
	}
	return false
}
