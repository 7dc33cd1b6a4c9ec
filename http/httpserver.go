package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/programme-lv/duel/arena"
	"github.com/programme-lv/duel/submsrvc"
)

type HttpServer struct {
	submSrvc *submsrvc.SubmSrvc
	arena    *arena.Arena
	router   *chi.Mux
	jwtKey   []byte
}

func NewHttpServer(submSrvc *submsrvc.SubmSrvc, arena *arena.Arena, jwtKey []byte) *HttpServer {
	router := chi.NewRouter()

	logger := httplog.NewLogger("duel", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "message",
	})
	router.Use(httplog.RequestLogger(logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	server := &HttpServer{
		submSrvc: submSrvc,
		arena:    arena,
		router:   router,
		jwtKey:   jwtKey,
	}
	server.routes()
	return server
}

func (httpserver *HttpServer) Handler() http.Handler {
	return httpserver.router
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Get("/scoreboard", httpserver.getScoreboard)
	r.Get("/state", httpserver.getState)
	r.Get("/queue", httpserver.getQueue)

	r.Group(func(r chi.Router) {
		r.Use(getJwtAuthMiddleware(httpserver.jwtKey))
		r.Get("/code/upload", httpserver.getUploadUrl)
		r.Get("/code/{role}", httpserver.getSourceUrl)
		r.Put("/code/{role}/{id}", httpserver.submitCode)
		r.Get("/submissions", httpserver.listSubmissions)
		r.Get("/submissions/{user}/{id}", httpserver.getSubmission)
	})
}
