package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport-level errors (DNS, dial, timeout)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeStatus represents non-2xx HTTP responses
	ErrorTypeStatus ErrorType = "status"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting by the target site
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStorage represents database errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeDuplicate represents a unique-constraint conflict on upsert
	ErrorTypeDuplicate ErrorType = "duplicate"
	// ErrorTypeDump represents pg_dump failures
	ErrorTypeDump ErrorType = "dump"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeStatus:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, source, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewStatus creates a new HTTP status error
func NewStatus(source string, code int) *ScrapeError {
	return New(ErrorTypeStatus, source, fmt.Sprintf("unexpected status code: %d", code), nil)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source, retryAfter string) *ScrapeError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(source, message string, err error) *ScrapeError {
	return New(ErrorTypeStorage, source, message, err)
}

// NewDuplicate creates a new duplicate-key error
func NewDuplicate(source, message string, err error) *ScrapeError {
	return New(ErrorTypeDuplicate, source, message, err)
}

// NewDump creates a new dump error
func NewDump(message string, err error) *ScrapeError {
	return New(ErrorTypeDump, "pg_dump", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a ScrapeError of the given type
func IsType(err error, errType ErrorType) bool {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// IsRateLimit reports whether err is a rate-limit error
func IsRateLimit(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

// IsDuplicate reports whether err is a duplicate-key error
func IsDuplicate(err error) bool {
	return IsType(err, ErrorTypeDuplicate)
}
