package server

import (
	"context"
	"time"

	"hud/feed"
	"hud/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Store is the database surface the HTTP handlers need.
type Store interface {
	EnsureProfile(ctx context.Context, userID, email string) error
	GetSettings(ctx context.Context, userID string) (models.ProfileSettings, []string, error)
	SaveSettings(ctx context.Context, userID string, settings models.ProfileSettings, focusTags []string) error

	ListSources(ctx context.Context, userID string) ([]models.Source, error)
	CreateSource(ctx context.Context, src models.Source) (models.Source, error)
	DeleteSource(ctx context.Context, userID, id string) error
	EnqueueJob(ctx context.Context, sourceID string) (string, error)

	ListBookmarks(ctx context.Context, userID string) ([]models.Bookmark, error)
	CreateBookmark(ctx context.Context, userID, itemID string) (string, error)
	DeleteBookmark(ctx context.Context, userID, itemID string) error

	GetItemForUser(ctx context.Context, itemID string) (models.SourcedItem, string, error)
	SetItemMetadata(ctx context.Context, itemID string, metadata models.ItemMetadata) error
}

// Summarizer generates AI summaries for items.
type Summarizer interface {
	Summarize(ctx context.Context, apiKey, title, snippet, url string) (string, error)
	Model() string
}

type ServerConfig struct {

	// The hostname to use for the server
	Hostname string

	// Allowed CORS origins for the dashboard
	CORSOrigins string

	// Secret used to verify session tokens
	AuthSecret []byte

	// The store backing all handlers
	Store Store

	// Assembler builds ranked feed pages
	Assembler *feed.Assembler

	// Throttler tracks refresh request times, so deletions can be forgotten
	Throttler *feed.Throttler

	// Summarizer for AI summaries; may be nil when disabled
	Summarizer Summarizer

	// Server-wide fallback AI key used when a user has none stored
	ServerAIKey string

	// Jobs is the ingest queue fed by source creation
	Jobs chan<- models.RefreshJob

	// Broadcast channels to pass new items to SSE clients
	Broadcaster *Broadcaster
}

// Returns a fiber.App instance to be used as the HTTP server for the HUD API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	if config.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     config.CORSOrigins,
			AllowHeaders:     "Authorization,Content-Type,Cache-Control",
			AllowCredentials: true,
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if config.Broadcaster != nil {
		registerSSE(app, config.Broadcaster)
	}

	api := app.Group("/api", authRequired(config.AuthSecret))

	api.Get("/feed", feedHandler(config))

	api.Get("/sources", listSourcesHandler(config))
	api.Post("/sources", createSourceHandler(config))
	api.Delete("/sources/:id", deleteSourceHandler(config))

	api.Get("/bookmarks", listBookmarksHandler(config))
	api.Post("/bookmarks", createBookmarkHandler(config))
	api.Delete("/bookmarks/:itemId", deleteBookmarkHandler(config))

	api.Get("/preferences", getPreferencesHandler(config))
	api.Post("/preferences", updatePreferencesHandler(config))

	api.Post("/ai/summarize", summarizeHandler(config))
	api.Get("/ai/key", getAIKeyHandler(config))
	api.Post("/ai/key", saveAIKeyHandler(config))
	api.Delete("/ai/key", deleteAIKeyHandler(config))

	return app
}
