package usecase

import "fmt"

// FetchError wraps a news fetch failure; fatal for the run.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch news after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RequestError wraps an AI call failure; no partial answer is trusted.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request analysis: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DeliveryError wraps a transport failure; the seen set is left untouched.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver report: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PersistenceError wraps a seen set save failure after the report went out.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist seen set: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
