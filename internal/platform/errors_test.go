package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesOpKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := newError("CreateDataset", NotFound, cause)
	assert.Equal(t, "CreateDataset: not_found: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestError_MessageWithoutCause(t *testing.T) {
	err := newError("DeleteDataset", Busy, nil)
	assert.Equal(t, "DeleteDataset: busy", err.Error())
}

func TestError_UnwrapExposesUnderlyingError(t *testing.T) {
	cause := errors.New("underlying")
	err := newError("op", Transport, cause)
	assert.Equal(t, cause, err.Unwrap())
}
