package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tinyfit/internal/logging"
	"github.com/copyleftdev/tinyfit/internal/optimization"
)

func TestErrorString(t *testing.T) {
	err := Wrap(stderrors.New("disk"), "load dataset").
		WithOperation("Load").
		WithComponent("dataset")

	assert.Equal(t, "load dataset: operation=Load, component=dataset: disk", err.Error())
	assert.NotEmpty(t, err.StackTrace())
	assert.Nil(t, Wrap(nil, "x"))
}

func TestStackSkipsErrorsPackage(t *testing.T) {
	err := New("boom")
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0], "TestStackSkipsErrorsPackage")
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New("inner")
	outer := Wrap(inner, "outer")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.Equal(t, "outer: inner", outer.Error())
	assert.Same(t, inner, stderrors.Unwrap(outer))
}

func TestAsFindsWrappedError(t *testing.T) {
	err := Wrap(fmt.Errorf("ctx: %w", optimization.ErrSingularSystem), "fit")

	assert.ErrorIs(t, err, optimization.ErrSingularSystem)
	assert.Equal(t, KindSingular, Classify(err))

	var e *Error
	require.True(t, As(err, &e))
	assert.Equal(t, "fit", e.Message)
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
		code   int
	}{
		{"mismatch", optimization.WrapError(optimization.ErrDimensionMismatch, "len"), KindMismatch, http.StatusBadRequest, RPCInvalidParams},
		{"invalid", optimization.ErrInvalidArgument, KindInvalid, http.StatusBadRequest, RPCInvalidParams},
		{"singular", optimization.WrapError(optimization.ErrSingularSystem, "pivot"), KindSingular, http.StatusUnprocessableEntity, RPCSolverError},
		{"objective", optimization.ErrInvalidObjective, KindObjective, http.StatusUnprocessableEntity, RPCSolverError},
		{"explicit", New("no such method").WithKind(KindNotFound), KindNotFound, http.StatusNotFound, RPCMethodNotFound},
		{"explicit overrides", Wrap(optimization.ErrSingularSystem, "degree").WithKind(KindInvalid), KindInvalid, http.StatusBadRequest, RPCInvalidParams},
		{"internal", stderrors.New("boom"), KindInternal, http.StatusInternalServerError, RPCInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, RPCCode(tt.err))
		})
	}

	assert.Equal(t, Kind(""), Classify(nil))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}

func TestWriteJSON(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.InfoLevel, &logs)

	rr := httptest.NewRecorder()
	WriteJSON(rr, logger, optimization.WrapError(optimization.ErrSingularSystem, "zero pivot"))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, KindSingular, resp.Kind)
	assert.Contains(t, resp.Error, "zero pivot")
	assert.Empty(t, logs.String())

	rr = httptest.NewRecorder()
	WriteJSON(rr, logger, New("database exploded"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Internal Server Error", resp.Error)
	assert.Contains(t, logs.String(), "database exploded")
	assert.Contains(t, logs.String(), `"stack"`)
}

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.InfoLevel, &logs)

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/fit", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, strings.Contains(logs.String(), "kaboom"))
	assert.Contains(t, logs.String(), "Recovered from panic")
}
