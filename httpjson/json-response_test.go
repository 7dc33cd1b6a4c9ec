package httpjson_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/programme-lv/duel/httpjson"
	"github.com/programme-lv/duel/srvcerror"
	"github.com/stretchr/testify/require"
)

func TestHandleErrorRateLimited(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := httptest.NewRecorder()
	err := srvcerror.New("submission_rate_limited", "too soon").
		SetHttpStatusCode(http.StatusTooManyRequests).
		SetRetryAfter(at)

	httpjson.HandleError(slog.Default(), rec, err)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, at.Format(http.TimeFormat), rec.Header().Get("Retry-After"))

	var resp httpjson.JsonResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "error", resp.Status)
	require.Equal(t, "submission_rate_limited", resp.ErrCode)
	require.NotNil(t, resp.RetryAfter)
	require.True(t, at.Equal(*resp.RetryAfter))
}

func TestHandleErrorUnknownIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.HandleError(slog.Default(), rec, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Header().Get("Retry-After"))
}

func TestWriteSuccessJson(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.WriteSuccessJson(rec, map[string]int{"a": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"success","data":{"a":1}}`, rec.Body.String())
}
