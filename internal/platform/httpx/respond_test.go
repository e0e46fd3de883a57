package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, http.StatusCreated, map[string]any{"id": 1})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.Empty(t, env.Message)
	require.NotNil(t, env.Data)
}

func TestOKPageCarriesPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	OKPage(rec, []int{1, 2}, Pagination{Page: 2, Limit: 20, Total: 45, TotalPages: 3})

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.NotNil(t, env.Pagination)
	require.Equal(t, 2, env.Pagination.Page)
	require.Equal(t, 45, env.Pagination.Total)
}

func TestRespondErrorSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("product: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("status: %w", ErrConflict), http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.code, rec.Code, "error %v", tc.err)
		env := decodeEnvelope(t, rec)
		require.False(t, env.Success)
	}
}

type shortageError struct {
	available int64
	requested int64
}

func (e *shortageError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.available, e.requested)
}

func (e *shortageError) HTTPStatus() int { return http.StatusBadRequest }

func (e *shortageError) ErrorData() any {
	return map[string]int64{"available": e.available, "requested": e.requested}
}

func TestRespondErrorStatusCoderWithData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("sale: %w", &shortageError{available: 5, requested: 10}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.Contains(t, env.Message, "insufficient stock")

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 5, data["available"])
	require.EqualValues(t, 10, data["requested"])
}

func TestRespondErrorValidationErrors(t *testing.T) {
	type payload struct {
		Name string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	RespondError(rec, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.NotEmpty(t, env.Message)
}
