package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeLoad represents unreadable or corrupt persisted state
	ErrorTypeLoad ErrorType = "load"
	// ErrorTypeExtraction represents render or page-structure failures
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeDelivery represents a transport failure for a single record
	ErrorTypeDelivery ErrorType = "delivery"
	// ErrorTypePersist represents a failed write of persisted state
	ErrorTypePersist ErrorType = "persist"
	// ErrorTypeLease represents a failure of the cross-process cycle lease
	ErrorTypeLease ErrorType = "lease"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// FeedError represents an error raised by one phase of a poll cycle
type FeedError struct {
	Type    ErrorType
	Subject string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Subject, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Subject, e.Message)
}

// Unwrap returns the underlying error
func (e *FeedError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error must stop the process. Only load errors
// qualify.
func (e *FeedError) IsFatal() bool {
	return e.Type == ErrorTypeLoad
}

// IsType reports whether err wraps a FeedError of the given type
func IsType(err error, errType ErrorType) bool {
	var fe *FeedError
	if !stderrors.As(err, &fe) {
		return false
	}
	return fe.Type == errType
}

// IsFatal reports whether err wraps a process-fatal FeedError
func IsFatal(err error) bool {
	var fe *FeedError
	if !stderrors.As(err, &fe) {
		return false
	}
	return fe.IsFatal()
}

// New creates a new FeedError
func New(errType ErrorType, subject, message string, err error) *FeedError {
	return &FeedError{
		Type:    errType,
		Subject: subject,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewLoad creates a new load error
func NewLoad(subject, message string, err error) *FeedError {
	return New(ErrorTypeLoad, subject, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(subject, message string, err error) *FeedError {
	return New(ErrorTypeExtraction, subject, message, err)
}

// NewDelivery creates a new delivery error
func NewDelivery(subject, message string, err error) *FeedError {
	return New(ErrorTypeDelivery, subject, message, err)
}

// NewPersist creates a new persist error
func NewPersist(subject, message string, err error) *FeedError {
	return New(ErrorTypePersist, subject, message, err)
}

// NewLease creates a new lease error
func NewLease(subject, message string, err error) *FeedError {
	return New(ErrorTypeLease, subject, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *FeedError {
	return New(ErrorTypeConfiguration, "config", message, err)
}
