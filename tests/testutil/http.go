package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors the API response wrapper for decoding in tests.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta,omitempty"`
}

// PerformRequest runs req through engine and returns the recorder.
func PerformRequest(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// NewJSONRequest builds a request with a JSON body. A nil body sends no payload.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewMultipartRequest builds a POST with a single file part named field.
func NewMultipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// DecodeEnvelope parses the response wrapper.
func DecodeEnvelope(t *testing.T, body []byte) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env), "Failed to parse JSON response: %s", body)
	return env
}

// DecodeData parses the envelope's data field into T.
func DecodeData[T any](t *testing.T, body []byte) T {
	t.Helper()

	env := DecodeEnvelope(t, body)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), "Failed to parse data: %s", env.Data)
	return out
}

// AssertErrorCode asserts an error envelope with the given code.
func AssertErrorCode(t *testing.T, body []byte, code string) {
	t.Helper()

	env := DecodeEnvelope(t, body)
	assert.False(t, env.Success, "Expected success to be false")
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, code, env.Error.Code)
}
