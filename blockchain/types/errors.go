package types

import (
	"errors"
	"fmt"
)

// ConnectErrorKind classifies Initialize failures
type ConnectErrorKind int

const (
	EndpointUnreachable ConnectErrorKind = iota + 1
	ContractDescriptorUnavailable
)

func (k ConnectErrorKind) String() string {
	switch k {
	case EndpointUnreachable:
		return "EndpointUnreachable"
	case ContractDescriptorUnavailable:
		return "ContractDescriptorUnavailable"
	default:
		return "Unknown"
	}
}

// ConnectError is returned when the ledger connection cannot be established
type ConnectError struct {
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger connect: %s", e.Kind)
	}
	return fmt.Sprintf("ledger connect: %s: %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Is matches any ConnectError of the same kind, so sentinels work with errors.Is
func (e *ConnectError) Is(target error) bool {
	t, ok := target.(*ConnectError)
	return ok && t.Kind == e.Kind
}

// WriteErrorKind classifies SubmitWrite failures
type WriteErrorKind int

const (
	EstimationFailed WriteErrorKind = iota + 1
	Reverted
	WriteNetworkTimeout
	SignerUnavailable
	WriteNotInitialized
)

func (k WriteErrorKind) String() string {
	switch k {
	case EstimationFailed:
		return "EstimationFailed"
	case Reverted:
		return "Reverted"
	case WriteNetworkTimeout:
		return "NetworkTimeout"
	case SignerUnavailable:
		return "SignerUnavailable"
	case WriteNotInitialized:
		return "NotInitialized"
	default:
		return "Unknown"
	}
}

// WriteError is returned by state-changing contract calls
type WriteError struct {
	Kind WriteErrorKind
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger write: %s", e.Kind)
	}
	return fmt.Sprintf("ledger write: %s: %v", e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool {
	t, ok := target.(*WriteError)
	return ok && t.Kind == e.Kind
}

// ReadErrorKind classifies read-only call failures
type ReadErrorKind int

const (
	NotFound ReadErrorKind = iota + 1
	ReadNetworkTimeout
	ReadNotInitialized
	Malformed
)

func (k ReadErrorKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case ReadNetworkTimeout:
		return "NetworkTimeout"
	case ReadNotInitialized:
		return "NotInitialized"
	case Malformed:
		return "Malformed"
	default:
		return "Unknown"
	}
}

// ReadError is returned by read-only contract calls.
// NotFound is an expected outcome: the contract simply has no record for the key yet.
type ReadError struct {
	Kind ReadErrorKind
	Err  error
}

func (e *ReadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger read: %s", e.Kind)
	}
	return fmt.Sprintf("ledger read: %s: %v", e.Kind, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool {
	t, ok := target.(*ReadError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrEndpointUnreachable           = &ConnectError{Kind: EndpointUnreachable}
	ErrContractDescriptorUnavailable = &ConnectError{Kind: ContractDescriptorUnavailable}

	ErrEstimationFailed    = &WriteError{Kind: EstimationFailed}
	ErrReverted            = &WriteError{Kind: Reverted}
	ErrWriteNetworkTimeout = &WriteError{Kind: WriteNetworkTimeout}
	ErrSignerUnavailable   = &WriteError{Kind: SignerUnavailable}
	ErrWriteNotInitialized = &WriteError{Kind: WriteNotInitialized}

	ErrNotFound           = &ReadError{Kind: NotFound}
	ErrReadNetworkTimeout = &ReadError{Kind: ReadNetworkTimeout}
	ErrReadNotInitialized = &ReadError{Kind: ReadNotInitialized}
	ErrMalformed          = &ReadError{Kind: Malformed}
)

// NewConnectError wraps err with the given kind
func NewConnectError(kind ConnectErrorKind, err error) error {
	return &ConnectError{Kind: kind, Err: err}
}

// NewWriteError wraps err with the given kind
func NewWriteError(kind WriteErrorKind, err error) error {
	return &WriteError{Kind: kind, Err: err}
}

// NewReadError wraps err with the given kind
func NewReadError(kind ReadErrorKind, err error) error {
	return &ReadError{Kind: kind, Err: err}
}

// WriteKind extracts the WriteErrorKind from err, or 0 if err is not a WriteError
func WriteKind(err error) WriteErrorKind {
	var we *WriteError
	if errors.As(err, &we) {
		return we.Kind
	}
	return 0
}

// ReadKind extracts the ReadErrorKind from err, or 0 if err is not a ReadError
func ReadKind(err error) ReadErrorKind {
	var re *ReadError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
