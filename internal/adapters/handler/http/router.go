package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(userHandler *UserHandler, activityHandler *ActivityHandler, oauthHandler *OAuthHandler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	auth := AuthMiddleware(jwtSecret)

	r.Route("/auth", func(r chi.Router) {
		r.With(auth).Get("/strava/callback", oauthHandler.StravaCallback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Get("/me", userHandler.GetMe)
		r.Get("/activities", activityHandler.ListActivities)
		r.Get("/summary", activityHandler.GetSummary)
		r.Put("/goals", activityHandler.UpdateGoals)
	})

	return r
}
