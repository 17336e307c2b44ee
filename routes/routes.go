package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/middleware"
)

type Handlers struct {
	Tournament  *handlers.TournamentHandler
	Bracket     *handlers.BracketHandler
	Progression *handlers.ProgressionHandler
	Standings   *handlers.StandingsHandler
	WebSocket   *handlers.WebSocketHandler
}

// New assembles the router: reads are public, bracket mutations require an
// organizer or admin token, and every tournament has a websocket event room.
func New(h Handlers, jwtSecret string, corsOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	allowed := corsOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	authenticated := middleware.Authenticator(jwtSecret)
	organizerOnly := middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin)
	anyMember := middleware.RequireRole(middleware.RolePlayer, middleware.RoleOrganizer, middleware.RoleAdmin)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/entries", h.Tournament.ListEntriesHandler)
		r.Get("/{tournamentID}/bracket", h.Bracket.GetHandler)
		r.Get("/{tournamentID}/standings", h.Standings.GetHandler)
		r.Get("/{tournamentID}/standings/groups", h.Standings.GroupsHandler)
		r.Get("/{tournamentID}/nodes/{nodeID}/feeds", h.Progression.FeedsHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.With(anyMember).Post("/{tournamentID}/entries", h.Tournament.RegisterEntryHandler)

			r.Group(func(r chi.Router) {
				r.Use(organizerOnly)

				r.Post("/", h.Tournament.CreateHandler)
				r.Post("/{tournamentID}/bracket", h.Bracket.GenerateHandler)
				r.Put("/{tournamentID}/bracket", h.Bracket.RegenerateHandler)
				r.Put("/{tournamentID}/bracket/seeds", h.Bracket.OverrideSeedsHandler)
				r.Post("/{tournamentID}/bracket/knockout", h.Bracket.SeedKnockoutHandler)

				r.Put("/{tournamentID}/nodes/{nodeID}/schedule", h.Progression.ScheduleHandler)
				r.Post("/{tournamentID}/nodes/{nodeID}/start", h.Progression.StartHandler)
				r.Post("/{tournamentID}/nodes/{nodeID}/result", h.Progression.ResultHandler)
				r.Post("/{tournamentID}/nodes/{nodeID}/forfeit", h.Progression.ForfeitHandler)
			})
		})
	})

	router.Route("/entries", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticated, organizerOnly)
			r.Post("/{entryID}/approve", h.Tournament.ApproveEntryHandler)
			r.Post("/{entryID}/withdraw", h.Tournament.WithdrawEntryHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
