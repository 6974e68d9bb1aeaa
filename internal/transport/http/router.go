package http

import (
	"net/http"
	"time"

	httpmw "github.com/codesync/codesync-backend/internal/transport/http/middleware"
	"github.com/codesync/codesync-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler        *Handler
	Auth           httpmw.Authenticator
	WS             http.HandlerFunc
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{httputil.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("CodeSync backend is running"))
	})

	// WS endpoint; authenticates itself from ?token=
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		api.Get("/stats", d.Handler.Stats)

		api.Post("/auth/register", d.Handler.Register)
		api.Post("/auth/login", d.Handler.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(httpmw.AuthMiddleware(d.Auth))

			pr.Get("/me", d.Handler.Me)
			pr.Route("/rooms", func(rm chi.Router) {
				rm.Get("/", d.Handler.ListRooms)
				rm.Post("/", d.Handler.CreateRoom)

				rm.Route("/{id}", func(rr chi.Router) {
					rr.Get("/", d.Handler.GetRoom)
					rr.Post("/code", d.Handler.SaveCode)
				})
			})
		})
	})

	return r
}
