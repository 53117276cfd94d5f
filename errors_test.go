package registry_test

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	registry "github.com/goliatone/go-voter-registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrInvalidPayloadKeepsFieldErrors(t *testing.T) {
	req := registry.SignupRequest{Username: "bad name", Role: "owner"}
	err := registry.ErrInvalidPayload(req.Validate())

	assert.Equal(t, goerrors.CategoryValidation, err.Category)
	assert.Equal(t, registry.TextCodeInvalidPayload, err.TextCode)
	assert.Equal(t, 400, err.Code)

	fields := make([]string, 0, len(err.ValidationErrors))
	for _, fe := range err.ValidationErrors {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"constituency", "password", "role", "username"}, fields)
}

func TestErrInvalidPayloadWrapsDecodeErrors(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := registry.ErrInvalidPayload(cause)

	assert.ErrorIs(t, err, cause)
	assert.Empty(t, err.ValidationErrors)
}

func TestErrInvalidPayloadSingleField(t *testing.T) {
	err := registry.ErrInvalidPayload(validation.Errors{"name": errors.New("cannot be blank")})
	require.Len(t, err.ValidationErrors, 1)
	assert.Equal(t, "name", err.ValidationErrors[0].Field)
}

func TestStoreError(t *testing.T) {
	assert.NoError(t, registry.StoreError(nil, "x"))

	cause := errors.New("disk full")
	err := registry.StoreError(cause, "failed to save")
	assert.True(t, registry.HasTextCode(err, registry.TextCodeStoreError))
	assert.ErrorIs(t, err, cause)

	notFound := registry.ErrUserNotFound("bob")
	assert.Same(t, notFound, registry.StoreError(notFound, "failed"))
}

func TestHasTextCode(t *testing.T) {
	assert.False(t, registry.HasTextCode(nil, registry.TextCodeStoreError))
	assert.False(t, registry.HasTextCode(errors.New("plain"), registry.TextCodeStoreError))
	assert.True(t, registry.HasTextCode(registry.ErrUsernameTaken("bob"), registry.TextCodeUsernameTaken))
}
