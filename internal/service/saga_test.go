package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaga_CompensatesInReverse(t *testing.T) {
	var trace []string
	step := func(name string, fail bool) (func(context.Context) error, func(context.Context) error) {
		return func(context.Context) error {
				trace = append(trace, "do "+name)
				if fail {
					return errors.New(name + " failed")
				}
				return nil
			}, func(context.Context) error {
				trace = append(trace, "undo "+name)
				return nil
			}
	}
	s := NewSaga(nil, 0)
	a, ua := step("a", false)
	b, ub := step("b", false)
	c, uc := step("c", true)
	s.Step("a", a, ua).Step("b", b, ub).Step("c", c, uc)

	err := s.Run(context.Background())
	assert.EqualError(t, err, "c failed")
	assert.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, trace)
}

func TestSaga_CompensationFailure(t *testing.T) {
	undoErr := errors.New("undo failed")
	stepErr := errors.New("step failed")
	s := NewSaga(nil, 0).
		Step("a", func(context.Context) error { return nil }, func(context.Context) error { return undoErr }).
		Step("b", func(context.Context) error { return stepErr }, nil)

	err := s.Run(context.Background())
	var rb *RollbackError
	assert.True(t, errors.As(err, &rb))
	assert.Equal(t, "b", rb.Step)
	assert.ErrorIs(t, err, stepErr)
	assert.ErrorIs(t, err, undoErr)
}

func TestSaga_AllSucceed(t *testing.T) {
	undone := false
	s := NewSaga(nil, 0).Step("a", func(context.Context) error { return nil }, func(context.Context) error { undone = true; return nil })
	assert.NoError(t, s.Run(context.Background()))
	assert.False(t, undone)
}
