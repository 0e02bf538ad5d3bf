package apiErrors

import "fmt"

type ErrorCode string

const (
	TeamExists       ErrorCode = "TEAM_EXISTS"
	NotFound         ErrorCode = "NOT_FOUND"
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	Unauthorized     ErrorCode = "UNAUTHORIZED"
	Forbidden        ErrorCode = "FORBIDDEN"
	InternalError    ErrorCode = "INTERNAL_ERROR"
)

type APIError struct {
	Code    ErrorCode
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
