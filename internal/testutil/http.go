package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request describes one HTTP call made against a gin engine
type Request struct {
	Method  string
	Path    string
	Body    any
	Headers map[string]string
}

// Serve performs the request against the engine and returns the recorder
func Serve(t *testing.T, engine *gin.Engine, r Request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if r.Body != nil {
		body = ToJSONReader(t, r.Body)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, r.Path, body)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// BearerHeader returns an Authorization header map for the token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// DecodeJSON parses the recorder body as a JSON object.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var result map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err, "Failed to parse JSON response: %s", w.Body.String())
	return result
}

// DecodeJSONAs parses the recorder body into T.
func DecodeJSONAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var result T
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err, "Failed to parse JSON response: %s", w.Body.String())
	return result
}

// AssertSuccessResponse asserts the response is a successful API envelope and returns its data.
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder) any {
	t.Helper()

	resp := DecodeJSON(t, w)
	assert.Equal(t, true, resp["success"], "Expected success to be true: %s", w.Body.String())
	assert.Nil(t, resp["error"], "Expected no error")
	return resp["data"]
}

// AssertErrorResponse asserts the status and the error envelope and
// returns the error object.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()

	require.Equal(t, status, w.Code, "Unexpected status: %s", w.Body.String())
	resp := DecodeJSON(t, w)
	assert.Equal(t, false, resp["success"], "Expected success to be false")

	errMap, ok := resp["error"].(map[string]any)
	require.True(t, ok, "Expected error object in response: %s", w.Body.String())
	return errMap
}

// AssertErrorCode asserts the error envelope carries code and returns the
// error object.
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, code string) map[string]any {
	t.Helper()

	resp := DecodeJSON(t, w)
	errMap, ok := resp["error"].(map[string]any)
	require.True(t, ok, "Expected error object in response: %s", w.Body.String())
	assert.Equal(t, code, errMap["code"], "Unexpected error code")
	return errMap
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
