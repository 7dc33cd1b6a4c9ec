package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/programme-lv/duel/httpjson"
)

func (httpserver *HttpServer) getScoreboard(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteSuccessJson(w, httpserver.arena.Scoreboard())
}

func (httpserver *HttpServer) getState(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteSuccessJson(w, httpserver.arena.Snapshot())
}

func (httpserver *HttpServer) getQueue(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	queue, err := httpserver.submSrvc.ListQueue(r.Context())
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, queue)
}
