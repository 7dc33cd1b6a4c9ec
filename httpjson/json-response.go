package httpjson

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/programme-lv/duel/srvcerror"
)

type JsonResponse struct {
	Status     string     `json:"status"` // "success" or "error"
	Data       any        `json:"data,omitempty"`
	ErrCode    string     `json:"code,omitempty"`
	ErrMsg     string     `json:"message,omitempty"`
	RetryAfter *time.Time `json:"retryAfter,omitempty"`
}

func WriteSuccessJson(w http.ResponseWriter, data any) {
	WriteJson(w, http.StatusOK, JsonResponse{
		Status: "success",
		Data:   data,
	})
}

func WriteJson(w http.ResponseWriter, statusCode int, resp JsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func WriteErrorJson(w http.ResponseWriter, errMsg string, statusCode int, errCode string) {
	WriteJson(w, statusCode, JsonResponse{
		Status:  "error",
		ErrMsg:  errMsg,
		ErrCode: errCode,
	})
}

func writeInternalErrorJson(w http.ResponseWriter) {
	WriteErrorJson(w,
		http.StatusText(http.StatusInternalServerError),
		http.StatusInternalServerError,
		srvcerror.ErrCodeInternalServerError)
}

func HandleError(logger *slog.Logger, w http.ResponseWriter, err error) {
	srvcErr := &srvcerror.Error{}
	if !errors.As(err, &srvcErr) {
		logger.Error("internal server error", "error", err)
		writeInternalErrorJson(w)
		return
	}

	if srvcErr.DebugInfo() != nil {
		logger.Warn("service error", "error", err, "debug", srvcErr.DebugInfo())
	} else {
		logger.Warn("service error", "error", err)
	}
	if srvcErr.HttpStatusCode() == http.StatusInternalServerError {
		logger.Error("internal server error", "error", err)
	}

	resp := JsonResponse{
		Status:  "error",
		ErrMsg:  srvcErr.Error(),
		ErrCode: srvcErr.ErrorCode(),
	}
	if at, ok := srvcErr.RetryAfter(); ok {
		resp.RetryAfter = &at
		w.Header().Set("Retry-After", at.UTC().Format(http.TimeFormat))
	}
	WriteJson(w, srvcErr.HttpStatusCode(), resp)
}
