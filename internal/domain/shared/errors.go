package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Billing pipeline errors
var (
	ErrMalformedRecord = NewDomainError("MALFORMED_RECORD", "Upstream charge record is missing required fields")
	ErrUnattributable  = NewDomainError("UNATTRIBUTABLE_TRANSACTION", "No attribution strategy resolved an owning tenant")
	ErrClaimConflict   = NewDomainError("CLAIM_CONFLICT", "Transactions were claimed by a concurrent assembly run")
	ErrRetryExhausted  = NewDomainError("RETRY_EXHAUSTED", "Pending dependency was not resolved within the retry budget")
)
