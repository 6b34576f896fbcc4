package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closebooks/backend/internal/interfaces/http/dto"
)

// bindRouter exposes one endpoint binding a manifest-shaped payload, with
// the tag name function installed the way the server wires it.
func bindRouter() *gin.Engine {
	SetupValidator()

	type runRequest struct {
		Format      string `json:"format" binding:"required,oneof=json yaml markdown"`
		Parallelism int    `json:"parallelism" binding:"required,gte=1"`
	}

	router := gin.New()
	router.Use(RequestID())
	router.POST("/run", func(c *gin.Context) {
		var req runRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accepted": true})
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationErrorReportsWireFieldNames(t *testing.T) {
	w := postJSON(bindRouter(), `{"format": "xml", "parallelism": 0}`)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "Request validation failed", resp.Error.Message)
	assert.NotEmpty(t, resp.Error.RequestID, "request id should ride along")

	require.Len(t, resp.Error.Details, 2)
	byField := map[string]string{}
	for _, d := range resp.Error.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "must be one of: json yaml markdown", byField["format"])
	assert.Equal(t, "this field is required", byField["parallelism"])
}

func TestHandleValidationErrorAcceptsValidPayload(t *testing.T) {
	w := postJSON(bindRouter(), `{"format": "json", "parallelism": 4}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleValidationErrorWithMalformedJSON(t *testing.T) {
	w := postJSON(bindRouter(), `{"format": `)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details, "syntax errors carry no field details")
}

func TestFormatValidationErrorsWithPlainError(t *testing.T) {
	resp := FormatValidationErrors(errors.New("unexpected EOF"), "req-9")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	assert.Empty(t, resp.Error.Details)
}
