package attendance

import "errors"

var (
	ErrLeaveNotFound     = errors.New("leave request not found")
	ErrLeaveNotPending   = errors.New("leave request already decided")
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrNotCheckedIn      = errors.New("check in before checking out")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
)
