package core

import "errors"

// Error codes for domain errors. These travel to the originating caller
// only and are never broadcast.
const (
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeRoomFull     = "room_full"
	ErrCodeNotYourTurn  = "not_your_turn"
	ErrCodeInvalidState = "invalid_state"
	ErrCodeIllegalMove  = "illegal_move"
	ErrCodeNotAMember   = "not_a_member"
	ErrCodeBadRequest   = "bad_request"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room full")
	ErrNotAMember   = errors.New("not a member")
	ErrBadRequest   = errors.New("bad request")
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func coreError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}
