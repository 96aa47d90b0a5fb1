package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"moonscribe/internal/events"
	"moonscribe/internal/handlers"
	"moonscribe/internal/metrics"
	"moonscribe/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Projects      service.ProjectService
	Content       service.ContentService
	Conversations service.ConversationService
	Insights      service.InsightService
	Flashcards    service.FlashcardService
	Keys          service.KeyService
	Dashboard     service.DashboardService

	// Teams is the upstream team directory. Nil disables the team routes.
	Teams handlers.TeamDirectory

	Bus      *events.Bus
	Commands *events.Commands

	Store    handlers.StoreProbe
	Upstream handlers.BreakerState
	Metrics  *metrics.Collector

	// Heartbeat is the keep-alive interval of streaming endpoints.
	Heartbeat time.Duration
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	projects := handlers.NewProjectHandler(deps.Projects)
	content := handlers.NewContentHandler(deps.Content)
	conversations := handlers.NewConversationHandler(deps.Conversations)
	insights := handlers.NewInsightHandler(deps.Insights)
	flashcards := handlers.NewFlashcardHandler(deps.Flashcards)
	keys := handlers.NewKeyHandler(deps.Keys)
	eventStream := handlers.NewEventHandler(deps.Bus, deps.Commands, deps.Heartbeat)
	views := handlers.NewViewHandler(deps.Bus, handlers.ViewServices{
		Projects:  deps.Projects,
		Content:   deps.Content,
		Insights:  deps.Insights,
		Dashboard: deps.Dashboard,
	}, deps.Heartbeat)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Store, deps.Upstream))
		r.Method(http.MethodGet, "/dashboard", handlers.NewDashboardHandler(deps.Dashboard))

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projects.List)
			r.Post("/", projects.Create)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", projects.Get)
				r.Patch("/", projects.Update)
				r.Delete("/", projects.Delete)

				r.Get("/content", content.ProjectContent)
				r.Post("/content", content.AddToProject)
				r.Delete("/content/{itemID}", content.RemoveFromProject)

				r.Get("/conversations", conversations.List)
				r.Post("/conversations", conversations.Create)
				r.Get("/conversations/{conversationID}", conversations.Get)
				r.Delete("/conversations/{conversationID}", conversations.Delete)
				r.Post("/ask", conversations.Ask)

				r.Get("/flashcards", flashcards.List)
				r.Post("/flashcards", flashcards.Generate)
				r.Delete("/flashcards/{cardID}", flashcards.Delete)
			})
		})

		// Ungrouped chat
		r.Get("/conversations", conversations.List)
		r.Post("/conversations", conversations.Create)
		r.Get("/conversations/{conversationID}", conversations.Get)
		r.Delete("/conversations/{conversationID}", conversations.Delete)
		r.Post("/ask", conversations.Ask)

		r.Get("/inbox", content.Inbox)
		r.Post("/inbox", content.AddToInbox)
		r.Delete("/inbox/{itemID}", content.RemoveFromInbox)
		r.Post("/content/move", content.Move)
		r.Post("/upload", content.Upload)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/", insights.List)
			r.Post("/", insights.Save)
			r.Get("/tags", insights.Tags)
			r.Get("/{insightID}", insights.Get)
			r.Patch("/{insightID}", insights.Update)
			r.Delete("/{insightID}", insights.Delete)
			r.Put("/{insightID}/starred", insights.SetStarred)
			r.Put("/{insightID}/archived", insights.SetArchived)
			r.Put("/{insightID}/public", insights.SetPublic)
			r.Get("/{insightID}/html", insights.HTML)
		})

		r.Get("/keys", keys.List)
		r.Post("/keys", keys.Add)
		r.Post("/keys/{keyID}/activate", keys.Activate)
		r.Delete("/keys/{keyID}", keys.Delete)

		if deps.Teams != nil {
			teams := handlers.NewTeamHandler(deps.Teams)
			r.Get("/teams", teams.List)
			r.Post("/teams", teams.Create)
			r.Delete("/teams/{teamID}", teams.Delete)
		}

		r.Get("/events", eventStream.Stream)
		r.Post("/commands", eventStream.SendCommand)
		r.Get("/views/{view}/stream", views.Stream)
	})

	r.Get("/share/{insightID}", insights.Shared)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	return r
}
