package server

import (
	"errors"
	"strings"
	"time"

	"hud/db"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// summarizeHandler returns the cached summary when one exists, otherwise it
// generates one and stores it on the item metadata.
func summarizeHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			ItemID string `json:"itemId"`
			Force  bool   `json:"force"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if _, err := uuid.Parse(req.ItemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item id"})
		}

		item, owner, err := config.Store.GetItemForUser(c.Context(), req.ItemID)
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
		}
		if err != nil {
			log.WithFields(log.Fields{
				"item":  req.ItemID,
				"error": err,
			}).Error("Could not load item for summary")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to summarize item"})
		}
		if owner != userID(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}

		metadata := item.Metadata
		if cached := strings.TrimSpace(metadata.AISummary); cached != "" && !req.Force {
			return c.JSON(fiber.Map{"summary": cached, "cached": true})
		}

		settings, _, err := config.Store.GetSettings(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not load settings for summary")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to summarize item"})
		}

		apiKey := strings.TrimSpace(settings.GeminiAPIKey)
		if apiKey == "" {
			apiKey = config.ServerAIKey
		}
		if apiKey == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing Gemini API key"})
		}

		summary, err := config.Summarizer.Summarize(c.Context(), apiKey, item.Title, item.Summary, item.URL)
		if err != nil {
			// Upstream detail stays in the logs, never in the response.
			log.WithFields(log.Fields{
				"item":  req.ItemID,
				"error": err,
			}).Error("Summary generation failed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to generate summary"})
		}

		metadata.AISummary = summary
		metadata.AISummaryProvider = "gemini"
		metadata.AISummaryModel = config.Summarizer.Model()
		metadata.AISummaryUpdatedAt = time.Now().UTC().Format(time.RFC3339)

		if err := config.Store.SetItemMetadata(c.Context(), req.ItemID, metadata); err != nil {
			log.WithFields(log.Fields{
				"item":  req.ItemID,
				"error": err,
			}).Error("Could not store summary")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to summarize item"})
		}

		return c.JSON(fiber.Map{"summary": summary, "cached": false})
	}
}

func getAIKeyHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings, _, err := config.Store.GetSettings(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not load settings")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load key"})
		}
		return c.JSON(fiber.Map{"hasGeminiKey": strings.TrimSpace(settings.GeminiAPIKey) != ""})
	}
}

func saveAIKeyHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			APIKey string `json:"apiKey"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		apiKey := strings.TrimSpace(req.APIKey)
		if len(apiKey) < 10 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid API key"})
		}

		if err := config.Store.EnsureProfile(c.Context(), userID(c), userEmail(c)); err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Warn("Could not ensure profile")
		}

		settings, focusTags, err := config.Store.GetSettings(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not load settings")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save key"})
		}

		settings.GeminiAPIKey = apiKey
		if err := config.Store.SaveSettings(c.Context(), userID(c), settings, focusTags); err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not save settings")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save key"})
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func deleteAIKeyHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings, focusTags, err := config.Store.GetSettings(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not load settings")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete key"})
		}

		if settings.GeminiAPIKey != "" {
			settings.GeminiAPIKey = ""
			if err := config.Store.SaveSettings(c.Context(), userID(c), settings, focusTags); err != nil {
				log.WithFields(log.Fields{
					"user":  userID(c),
					"error": err,
				}).Error("Could not save settings")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete key"})
			}
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
