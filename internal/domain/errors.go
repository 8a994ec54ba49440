package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input). Fatal for the
// whole request: there is no meaningful recommendation without a valid
// candidate transaction.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrCardConfig indicates a wallet card's family parameters are invalid.
// Recovered locally: the card is excluded from ranking, others proceed.
type ErrCardConfig struct {
	CardID string
	Param  string
	Reason string
}

func (e *ErrCardConfig) Error() string {
	return fmt.Sprintf("card config error [%s] %s: %s", e.CardID, e.Param, e.Reason)
}

// ErrEmptyWallet indicates zero evaluable cards remained after filtering
// configuration errors. Distinct from a normal empty ranking so callers
// don't mistake it for "computed normally, nothing better available".
type ErrEmptyWallet struct {
	UserID string
}

func (e *ErrEmptyWallet) Error() string {
	return fmt.Sprintf("no evaluable cards in wallet for user %s", e.UserID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (e.g. duplicate wallet card).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
