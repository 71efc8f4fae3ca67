package errors

import "fmt"

var (
	ErrMissingConnectionID = fmt.Errorf("connectionId value not set")
	ErrMissingToken        = fmt.Errorf("token query parameter not provided")
	ErrTokenVerification   = fmt.Errorf("token verification failed")
	ErrUnrecognizedEvent   = fmt.Errorf("unrecognized eventType")
	ErrUnknownConnection   = fmt.Errorf("unknown connection")
)

// StorageError signals a registry or message-store backend failure.
// The core never retries it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DeliveryError signals that a push to one connection failed,
// usually because the connection is gone. It is isolated to that
// recipient and never aborts a fan-out.
type DeliveryError struct {
	ConnectionID string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %q failed: %v", e.ConnectionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
