package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpErrorMatching(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("handler: %w", &OpError{Op: OpAdd, Kind: KindRemoteFailure, ProductID: 4, Err: cause})

	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, KindRemoteFailure, KindOf(err))
	assert.Contains(t, err.Error(), "cart add product 4: remote_failure")
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&OpError{Op: OpAdd, Kind: KindOutOfStock}, "Requested quantity is out of stock"},
		{&OpError{Op: OpUpdate, Kind: KindOutOfStock}, "Requested quantity is out of stock"},
		{&OpError{Op: OpAdd, Kind: KindRemoteFailure}, "Could not add product"},
		{&OpError{Op: OpRemove, Kind: KindNotFound}, "Could not remove product"},
		{&OpError{Op: OpUpdate, Kind: KindNotFound}, "Could not change product quantity"},
		{&OpError{Op: OpClear, Kind: KindStorage}, "Could not clear cart"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Message(c.err))
	}
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}
