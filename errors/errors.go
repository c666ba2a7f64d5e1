package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrNotAuthorized      = fmt.Errorf("not authorized for this conversation")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
)
