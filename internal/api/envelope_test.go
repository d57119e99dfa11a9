package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/http/response"
)

func marshalEnvelope(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEnvelopeTransformer_Success(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "200", map[string]string{"id": "row-1"})
	require.NoError(t, err)

	out := marshalEnvelope(t, result)
	assert.InDelta(t, 1, out["v"], 0)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"id": "row-1"}, out["data"])
	assert.NotContains(t, out, "code")
	assert.NotContains(t, out, "error")
}

func TestEnvelopeTransformer_NoContent(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "204", nil)
	require.NoError(t, err)

	out := marshalEnvelope(t, result)
	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "data")
}

func TestEnvelopeTransformer_AlreadyWrapped(t *testing.T) {
	env := response.Ok("x")
	result, err := EnvelopeTransformer(nil, "200", env)
	require.NoError(t, err)
	assert.Equal(t, env, result)
}

func TestEnvelopeTransformer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		value    any
		wantCode string
		wantMsg  string
	}{
		{
			name:     "api error keeps its code",
			status:   "409",
			value:    &APIError{status: http.StatusConflict, Code: "CONFLICT", Message: "a reply is still in progress"},
			wantCode: "CONFLICT",
			wantMsg:  "a reply is still in progress",
		},
		{
			name:     "api error without code",
			status:   "429",
			value:    &APIError{status: http.StatusTooManyRequests, Message: "slow down"},
			wantCode: "RATE_LIMITED",
			wantMsg:  "slow down",
		},
		{
			name:     "plain error",
			status:   "502",
			value:    errors.New("inference timed out"),
			wantCode: "UPSTREAM",
			wantMsg:  "inference timed out",
		},
		{
			name:     "unknown value",
			status:   "404",
			value:    "nope",
			wantCode: "NOT_FOUND",
			wantMsg:  "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.value)
			require.NoError(t, err)

			out := marshalEnvelope(t, result)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tt.wantCode, out["code"])
			assert.Equal(t, tt.wantMsg, out["message"])
			assert.Equal(t, tt.wantMsg, out["error"])
		})
	}
}

func TestEvents_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/events")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
