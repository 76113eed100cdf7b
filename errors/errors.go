package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrDuplicateSession  = fmt.Errorf("session already registered")
	ErrSessionClosed     = fmt.Errorf("session closed")
	ErrPoolStopped       = fmt.Errorf("dispatch pool stopped")
	ErrServerStopped     = fmt.Errorf("server stopped")
	ErrLineTooLong       = fmt.Errorf("line exceeds maximum length")
	ErrInvalidCensorChar = fmt.Errorf("censor replacement must be a single character")
)
