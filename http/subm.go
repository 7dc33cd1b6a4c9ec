package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/programme-lv/duel/httpjson"
	"github.com/programme-lv/duel/submsrvc"
)

func (httpserver *HttpServer) getUploadUrl(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	upload, err := httpserver.submSrvc.NewUpload(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, upload)
}

// getSourceUrl redirects to the caller's current source of a role.
// An unused slot answers with an empty body.
func (httpserver *HttpServer) getSourceUrl(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	url, err := httpserver.submSrvc.SourceURL(r.Context(), chi.URLParam(r, "role"), callerFromContext(r.Context()))
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	if url == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (httpserver *HttpServer) submitCode(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	role := chi.URLParam(r, "role")
	id := chi.URLParam(r, "id")
	subm, err := httpserver.submSrvc.Submit(r.Context(), role, callerFromContext(r.Context()), id)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, subm)
}

func (httpserver *HttpServer) listSubmissions(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	subms, err := httpserver.submSrvc.ListSubmissions(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, subms)
}

// getSubmission serves status polling. Other users' submissions are reported as missing.
func (httpserver *HttpServer) getSubmission(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	user := chi.URLParam(r, "user")
	if user != callerFromContext(r.Context()) {
		httpjson.HandleError(logger, w, submsrvc.ErrSubmissionNotFound())
		return
	}
	subm, err := httpserver.submSrvc.GetSubmission(r.Context(), user+"/"+chi.URLParam(r, "id"))
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, subm)
}
