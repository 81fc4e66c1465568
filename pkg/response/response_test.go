package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/legalens/pkg/errors"
)

func TestErr(t *testing.T) {
	r := Err(errors.ErrUnsupportedContract).WithRequestID("01J0")

	assert.Equal(t, errors.ErrUnsupportedContract.Code, r.Code)
	assert.Equal(t, http.StatusBadRequest, r.HTTPStatus())
	assert.Equal(t, "01J0", r.RequestID)
	assert.Nil(t, r.Data)
}

func TestErrNil(t *testing.T) {
	r := Err(nil)
	assert.Equal(t, 0, r.Code)
	assert.Equal(t, http.StatusOK, r.HTTPStatus())
}

func TestHTTPStatusFallsBackToCategory(t *testing.T) {
	r := &Response{Code: errors.MakeCode(55, errors.CategoryTimeout, 9)}
	assert.Equal(t, http.StatusGatewayTimeout, r.HTTPStatus())

	r = &Response{Code: errors.MakeCode(55, errors.CategoryInternal, 9)}
	assert.Equal(t, http.StatusInternalServerError, r.HTTPStatus())
}

func TestStamp(t *testing.T) {
	r := Err(errors.ErrGenerationFailed).Stamp()
	assert.Positive(t, r.Timestamp)
}
