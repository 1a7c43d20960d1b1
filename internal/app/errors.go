package app

import "fmt"

// DomainError is a failure with a decided HTTP mapping: a missing query
// parameter, a rejected ingestion payload, a bad sync token. Everything
// else stays a plain wrapped error and falls through mapError to a 500.
// Note that a failed match is never an error of any kind; it is returned
// as a "none" result.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
