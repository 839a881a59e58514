package service

import (
	"errors"
	"fmt"
)

// Operation names, used in errors, logs and metrics.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpUpdate = "update"
	OpClear  = "clear"
)

// Kind classifies why a cart operation failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindOutOfStock
	KindNotFound
	KindRemoteFailure
	KindStorage
	KindRetired
)

var (
	ErrOutOfStock    = errors.New("requested quantity is out of stock")
	ErrNotFound      = errors.New("product is not in the cart")
	ErrRemoteFailure = errors.New("catalog request failed")
	ErrStorage       = errors.New("cart storage failed")
	// ErrRetired is returned by a CartStore the registry has evicted. Get
	// the session's cart again and retry.
	ErrRetired = errors.New("cart handle is no longer current")
)

func (k Kind) String() string {
	switch k {
	case KindOutOfStock:
		return "out_of_stock"
	case KindNotFound:
		return "not_found"
	case KindRemoteFailure:
		return "remote_failure"
	case KindStorage:
		return "storage"
	case KindRetired:
		return "retired"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindOutOfStock:
		return ErrOutOfStock
	case KindNotFound:
		return ErrNotFound
	case KindRemoteFailure:
		return ErrRemoteFailure
	case KindStorage:
		return ErrStorage
	case KindRetired:
		return ErrRetired
	}
	return nil
}

// OpError is returned by every failed cart operation. It matches the
// sentinel for its Kind under errors.Is and unwraps to the underlying cause.
type OpError struct {
	Op        string
	Kind      Kind
	ProductID int64
	Err       error
}

func (e *OpError) Error() string {
	msg := fmt.Sprintf("cart %s product %d: %s", e.Op, e.ProductID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf reports the Kind of a cart error, or KindUnknown.
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindUnknown
}

// Message turns a cart error into the text shown to the shopper.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrOutOfStock) {
		return "Requested quantity is out of stock"
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case OpAdd:
			return "Could not add product"
		case OpRemove:
			return "Could not remove product"
		case OpUpdate:
			return "Could not change product quantity"
		case OpClear:
			return "Could not clear cart"
		}
	}
	return "Something went wrong"
}
