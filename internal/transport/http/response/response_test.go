package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"franchise-crm/internal/domain"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.Validation("email is required"), CodeBadRequest, "email is required"},
		{domain.Conflict("dup"), CodeConflict, "dup"},
		{domain.NotFound("lead not found"), CodeNotFound, "lead not found"},
		{domain.Forbidden("nope"), CodeForbidden, "nope"},
		{domain.Unauthorized("invalid credentials"), CodeUnauthorized, "invalid credentials"},
		{domain.Upstream("identity store", errors.New("dial tcp 10.0.0.1")), CodeBadGateway, "identity store"},
		{domain.PartialFailure("account updated but profile was not", errors.New("x")), CodeServerError, "account updated but profile was not"},
		{errors.New("raw"), CodeBadGateway, "Bad Gateway"},
	}
	for _, tc := range cases {
		r := FromError(tc.err)
		assert.Equal(t, tc.code, r.Code, tc.err.Error())
		assert.Equal(t, tc.msg, r.Msg)
	}
}

func TestFromError_WrappedKeepsKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", domain.NotFound("task not found"))
	assert.Equal(t, CodeNotFound, FromError(err).Code)
}

func TestNew_NilData(t *testing.T) {
	assert.Equal(t, struct{}{}, OK(nil).Data)
}
