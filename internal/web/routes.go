package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/web/handlers"
)

func (s *Server) setupRoutes(deps Deps) {
	enrollHandler := handlers.NewEnrollHandler(deps.Enrollment)
	identifyHandler := handlers.NewIdentifyHandler(deps.Identification)
	peopleHandler := handlers.NewPeopleHandler(deps.Repository, deps.Enrollment)
	systemHandler := handlers.NewSystemHandler(deps.Repository, deps.Enrollment)

	s.router.Get("/api/v1/health", systemHandler.Health)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/enroll", enrollHandler.Enroll)
		r.Post("/identify", identifyHandler.Identify)

		r.Get("/people", peopleHandler.List)
		r.Get("/people/search", peopleHandler.List)
		r.Get("/people/{id}", peopleHandler.Get)
		r.Put("/people/{id}", peopleHandler.Update)
		r.Delete("/people/{id}", peopleHandler.Delete)
		r.Post("/people/{id}/faces", enrollHandler.AddFace)

		r.Get("/stats", systemHandler.Stats)
	})
}
