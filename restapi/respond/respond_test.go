package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shiva-74/HopeConnect/internal/ledger"
	"github.com/Shiva-74/HopeConnect/model"
)

func statusFor(t *testing.T, err error) int {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Error(c, err)
	})

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestErrorStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(t, model.NewValidationError("blood_type", "bad")))
	assert.Equal(t, http.StatusNotFound, statusFor(t, model.NewNotFoundError("donor", "d1")))
	assert.Equal(t, http.StatusConflict, statusFor(t, model.NewStateConflictError("journey", "moved")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(t, ledger.ErrNotConfigured))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(t, ledger.ErrUnavailable))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(t, &ledger.RevertError{Method: "registerOrgan", Err: errors.New("revert")}))
	assert.Equal(t, http.StatusBadGateway, statusFor(t, &ledger.SubmitError{Method: "mint", Err: errors.New("refused")}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(t, errors.New("boom")))
}
