package api

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the shared envelope:
// {"v":1,"success":true,"data":...} or {"v":1,"success":false,"code":...,"message":...}.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, err := strconv.Atoi(status)
	if err != nil {
		code = http.StatusOK
	}

	if code < 400 {
		if _, already := v.(response.Envelope); already {
			return v, nil
		}
		return response.Ok(v), nil
	}

	switch e := v.(type) {
	case *APIError:
		errCode := e.Code
		if errCode == "" {
			errCode = string(response.CodeForStatus(code))
		}
		return response.Fail(errCode, e.Message, e.Details), nil
	case error:
		return response.Fail(string(response.CodeForStatus(code)), e.Error(), nil), nil
	default:
		return response.Fail(string(response.CodeForStatus(code)), http.StatusText(code), nil), nil
	}
}
